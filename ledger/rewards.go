package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// settle moves the reward h accrued since its last settlement into
// Claimable and advances its debt to the current accumulator.
func settle(st *State, h *Holder) error {
	delta, err := sub(st.Accumulator, h.RewardDebt, "reward debt")
	if err != nil {
		return err
	}
	if !delta.IsZero() {
		units, dust, err := mulDivRem(h.Shares, delta, h.Dust, scale, "settle")
		if err != nil {
			return err
		}
		if h.Claimable, err = add(h.Claimable, units, "claimable"); err != nil {
			return err
		}
		h.Dust = dust
	}
	h.RewardDebt = cloneInt(st.Accumulator)
	return nil
}

// claim pays out h's claimable reward to recipient. h must be settled.
func (t *txn) claim(h *Holder, recipient common.Address) (*uint256.Int, error) {
	amount := cloneInt(h.Claimable)
	if amount.IsZero() {
		return amount, nil
	}
	var err error
	if h.Claimed, err = add(h.Claimed, amount, "claimed"); err != nil {
		return nil, err
	}
	if t.state.TotalClaimed, err = add(t.state.TotalClaimed, amount, "total claimed"); err != nil {
		return nil, err
	}
	h.Claimable = zero()
	t.pay(PaymentReward, recipient, amount)
	t.emit(&Event{Kind: EventRewardClaimed, Holder: h.Address, Counterparty: recipient, Amount: cloneInt(amount), Shares: zero()})
	return amount, nil
}

// ReceiveReward distributes amount pro-rata over the shares outstanding. The
// cost is independent of the number of holders: only the accumulator moves.
// A zero amount is ignored. With no shares outstanding it fails with
// ErrNoShares and the reward is not accepted.
func (l *Ledger) ReceiveReward(ctx context.Context, from common.Address, amount *uint256.Int) error {
	const op = "receive_reward"
	if amount == nil {
		return l.fail(op, fmt.Errorf("%w: amount", ErrNilParam))
	}
	if amount.IsZero() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	if t.state.TotalShares.IsZero() {
		return l.fail(op, ErrNoShares)
	}
	inc, rem, err := mulDivRem(amount, scale, t.state.RewardRemainder, t.state.TotalShares, "reward per share")
	if err != nil {
		return l.fail(op, err)
	}
	if t.state.Accumulator, err = add(t.state.Accumulator, inc, "accumulator"); err != nil {
		return l.fail(op, err)
	}
	if t.state.TotalRewards, err = add(t.state.TotalRewards, amount, "total rewards"); err != nil {
		return l.fail(op, err)
	}
	t.state.RewardRemainder = rem
	t.emit(&Event{Kind: EventRewardsReceived, Holder: from, Amount: cloneInt(amount), Shares: zero()})

	if err := l.commit(ctx, t); err != nil {
		return l.fail(op, err)
	}
	l.log.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"amount": amount.Dec(),
	}).Debug("ledger: rewards received")
	return nil
}

// AddYield grows the pooled principal without minting shares, raising the
// value of every outstanding share. A zero amount is ignored.
func (l *Ledger) AddYield(ctx context.Context, from common.Address, amount *uint256.Int) error {
	const op = "add_yield"
	if amount == nil {
		return l.fail(op, fmt.Errorf("%w: amount", ErrNilParam))
	}
	if amount.IsZero() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	var err error
	if t.state.TotalPooledValue, err = add(t.state.TotalPooledValue, amount, "pooled value"); err != nil {
		return l.fail(op, err)
	}
	t.emit(&Event{Kind: EventYieldAdded, Holder: from, Amount: cloneInt(amount), Shares: zero()})

	if err := l.commit(ctx, t); err != nil {
		return l.fail(op, err)
	}
	l.log.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"amount": amount.Dec(),
	}).Debug("ledger: yield added")
	return nil
}

// Claim pays holder's claimable reward to recipient and returns the amount.
// Nothing happens when there is nothing to claim. If the recipient refuses
// the payment the claim fails with ErrPaymentFailed and the reward stays
// claimable.
func (l *Ledger) Claim(ctx context.Context, holder, recipient common.Address) (*uint256.Int, error) {
	const op = "claim"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.holders[holder]; !ok {
		return zero(), nil
	}
	t := l.begin()
	h := t.holder(holder)
	if err := settle(t.state, h); err != nil {
		return nil, l.fail(op, err)
	}
	if h.Claimable.IsZero() {
		return zero(), nil
	}
	paid, err := t.claim(h, recipient)
	if err != nil {
		return nil, l.fail(op, err)
	}
	if err := l.commit(ctx, t); err != nil {
		return nil, l.fail(op, err)
	}
	l.log.WithFields(logrus.Fields{
		"holder":    holder.Hex(),
		"recipient": recipient.Hex(),
		"amount":    paid.Dec(),
	}).Debug("ledger: reward claimed")
	return paid, nil
}

// pendingOf previews h's claimable reward without mutating it.
func (l *Ledger) pendingOf(h *Holder) *uint256.Int {
	preview := h.Clone()
	if err := settle(l.state, preview); err != nil {
		l.log.WithField("holder", h.Address.Hex()).WithError(err).Error("ledger: settle preview failed")
		return cloneInt(h.Claimable)
	}
	return preview.Claimable
}

// ClaimableRewardsOf returns the reward holder could claim now.
func (l *Ledger) ClaimableRewardsOf(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders[holder]
	if !ok {
		return zero()
	}
	return l.pendingOf(h)
}

// ClaimedRewardsOf returns the reward already paid out for holder.
func (l *Ledger) ClaimedRewardsOf(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders[holder]
	if !ok {
		return zero()
	}
	return cloneInt(h.Claimed)
}

// TotalRewardsEarned returns claimed plus claimable reward for holder.
func (l *Ledger) TotalRewardsEarned(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders[holder]
	if !ok {
		return zero()
	}
	return new(uint256.Int).Add(h.Claimed, l.pendingOf(h))
}

// SharesOf returns holder's share balance.
func (l *Ledger) SharesOf(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders[holder]
	if !ok {
		return zero()
	}
	return cloneInt(h.Shares)
}

// TokenBalance returns the principal holder's shares would redeem now.
func (l *Ledger) TokenBalance(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders[holder]
	if !ok || l.state.TotalShares.IsZero() {
		return zero()
	}
	balance, err := mulDiv(h.Shares, l.state.TotalPooledValue, l.state.TotalShares, "token balance")
	if err != nil {
		l.log.WithField("holder", holder.Hex()).WithError(err).Error("ledger: token balance")
		return zero()
	}
	return balance
}

// TotalShares returns the number of shares outstanding.
func (l *Ledger) TotalShares() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneInt(l.state.TotalShares)
}

// TotalPooledValue returns the principal backing the shares.
func (l *Ledger) TotalPooledValue() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneInt(l.state.TotalPooledValue)
}

// Accumulator returns the scaled cumulative reward per share.
func (l *Ledger) Accumulator() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneInt(l.state.Accumulator)
}

// Snapshot returns a copy of the global state.
func (l *Ledger) Snapshot() *State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Holder returns a copy of holder's record.
func (l *Ledger) Holder(holder common.Address) (*Holder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders[holder]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHolderNotFound, holder.Hex())
	}
	return h.Clone(), nil
}

// Holders returns copies of every holder record ordered by address.
func (l *Ledger) Holders() []*Holder {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Holder, 0, len(l.holders))
	for _, h := range l.holders {
		out = append(out, h.Clone())
	}
	sortHolders(out)
	return out
}

// Events returns up to limit journaled events with Seq > after.
func (l *Ledger) Events(after uint64, limit int) ([]*Event, error) {
	return l.store.Events(after, limit)
}
