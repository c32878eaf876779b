package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Audit checks the accounting invariants of the current state.
func (l *Ledger) Audit() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.audit()
}

func (l *Ledger) audit() error {
	sum := zero()
	for addr, h := range l.holders {
		var overflow bool
		if sum, overflow = new(uint256.Int).AddOverflow(sum, h.Shares); overflow {
			return fmt.Errorf("%w: share sum overflows", ErrInvariant)
		}
		if h.RewardDebt.Gt(l.state.Accumulator) {
			return fmt.Errorf("%w: holder %s debt %s above accumulator %s",
				ErrInvariant, addr.Hex(), h.RewardDebt.Dec(), l.state.Accumulator.Dec())
		}
		if !h.Dust.Lt(scale) {
			return fmt.Errorf("%w: holder %s dust %s not below scale", ErrInvariant, addr.Hex(), h.Dust.Dec())
		}
	}
	if !sum.Eq(l.state.TotalShares) {
		return fmt.Errorf("%w: holder shares %s != total shares %s", ErrInvariant, sum.Dec(), l.state.TotalShares.Dec())
	}
	if !l.state.TotalShares.IsZero() && l.state.TotalPooledValue.IsZero() {
		return fmt.Errorf("%w: %s shares outstanding with no pooled value", ErrInvariant, l.state.TotalShares.Dec())
	}
	if l.state.TotalClaimed.Gt(l.state.TotalRewards) {
		return fmt.Errorf("%w: claimed %s exceeds received %s", ErrInvariant, l.state.TotalClaimed.Dec(), l.state.TotalRewards.Dec())
	}
	return nil
}

// PreviewDistribution splits a hypothetical reward over the current holders
// with a per-holder floor, the way an eager distribution would. Holders without
// shares are omitted. The undistributed remainder is returned separately.
// It does not change the ledger.
func (l *Ledger) PreviewDistribution(amount *uint256.Int) ([]Distribution, *uint256.Int, error) {
	if amount == nil {
		return nil, nil, fmt.Errorf("%w: amount", ErrNilParam)
	}
	if amount.IsZero() {
		return nil, nil, ErrZeroAmount
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state.TotalShares.IsZero() {
		return nil, nil, ErrNoShares
	}

	holders := make([]*Holder, 0, len(l.holders))
	for _, h := range l.holders {
		if !h.Shares.IsZero() {
			holders = append(holders, h)
		}
	}
	sortHolders(holders)

	distributions := make([]Distribution, len(holders))
	distributed := zero()
	for i, h := range holders {
		share, err := mulDiv(amount, h.Shares, l.state.TotalShares, "preview")
		if err != nil {
			return nil, nil, err
		}
		distributions[i] = Distribution{Address: h.Address, Amount: share}
		distributed.Add(distributed, share)
	}
	return distributions, new(uint256.Int).Sub(amount, distributed), nil
}
