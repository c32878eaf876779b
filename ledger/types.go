package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Holder is the ledger record of a single share holder.
type Holder struct {
	Address    common.Address
	Shares     *uint256.Int // share balance
	RewardDebt *uint256.Int // accumulator value at last settlement
	Claimable  *uint256.Int // settled, unpaid reward
	Dust       *uint256.Int // settled reward below one unit, scaled; always < Scale
	Claimed    *uint256.Int // cumulative reward paid out
}

func newHolder(addr common.Address) *Holder {
	return &Holder{
		Address:    addr,
		Shares:     zero(),
		RewardDebt: zero(),
		Claimable:  zero(),
		Dust:       zero(),
		Claimed:    zero(),
	}
}

// Clone returns a deep copy of the holder.
func (h *Holder) Clone() *Holder {
	return &Holder{
		Address:    h.Address,
		Shares:     cloneInt(h.Shares),
		RewardDebt: cloneInt(h.RewardDebt),
		Claimable:  cloneInt(h.Claimable),
		Dust:       cloneInt(h.Dust),
		Claimed:    cloneInt(h.Claimed),
	}
}

// State is the global ledger aggregate.
type State struct {
	TotalShares      *uint256.Int
	TotalPooledValue *uint256.Int // principal backing the shares
	Accumulator      *uint256.Int // cumulative reward per share, magnified by Scale
	RewardRemainder  *uint256.Int // scaled reward not yet reflected in Accumulator
	TotalRewards     *uint256.Int // cumulative reward value received
	TotalClaimed     *uint256.Int // cumulative reward value paid out
	EventSeq         uint64       // sequence number of the last committed event
}

// NewState returns the empty state a ledger starts from.
func NewState() *State {
	return &State{
		TotalShares:      zero(),
		TotalPooledValue: zero(),
		Accumulator:      zero(),
		RewardRemainder:  zero(),
		TotalRewards:     zero(),
		TotalClaimed:     zero(),
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	return &State{
		TotalShares:      cloneInt(s.TotalShares),
		TotalPooledValue: cloneInt(s.TotalPooledValue),
		Accumulator:      cloneInt(s.Accumulator),
		RewardRemainder:  cloneInt(s.RewardRemainder),
		TotalRewards:     cloneInt(s.TotalRewards),
		TotalClaimed:     cloneInt(s.TotalClaimed),
		EventSeq:         s.EventSeq,
	}
}

// Distribution is one holder's share of a previewed reward.
type Distribution struct {
	Address common.Address
	Amount  *uint256.Int
}
