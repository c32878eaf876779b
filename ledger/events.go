package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind identifies a committed ledger event.
type EventKind uint8

const (
	EventDeposit EventKind = iota + 1
	EventWithdraw
	EventTransfer
	EventRewardsReceived
	EventRewardClaimed
	EventYieldAdded
)

var eventNames = map[EventKind]string{
	EventDeposit:         "Deposit",
	EventWithdraw:        "Withdraw",
	EventTransfer:        "Transfer",
	EventRewardsReceived: "RewardsReceived",
	EventRewardClaimed:   "RewardClaimed",
	EventYieldAdded:      "YieldAdded",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is emitted once per committed state change.
//
//	Deposit         Holder, Amount=principal, Shares=minted
//	Withdraw        Holder, Amount=principal, Shares=burned
//	Transfer        Holder=from, Counterparty=to, Shares
//	RewardsReceived Holder=sender, Amount
//	RewardClaimed   Holder, Counterparty=recipient, Amount
//	YieldAdded      Holder=sender, Amount
type Event struct {
	Seq          uint64
	Kind         EventKind
	Holder       common.Address
	Counterparty common.Address
	Amount       *uint256.Int
	Shares       *uint256.Int
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	cp := *e
	cp.Amount = cloneInt(e.Amount)
	cp.Shares = cloneInt(e.Shares)
	return &cp
}

func (e *Event) String() string {
	return fmt.Sprintf("#%d %s holder=%s counterparty=%s amount=%s shares=%s",
		e.Seq, e.Kind, e.Holder.Hex(), e.Counterparty.Hex(), cloneInt(e.Amount).Dec(), cloneInt(e.Shares).Dec())
}

// EventSink receives events after their operation has been committed.
// Sinks are called under the ledger lock and must not call back into it.
type EventSink interface {
	HandleEvent(ev *Event)
}

// EventFunc adapts a function to EventSink.
type EventFunc func(ev *Event)

// HandleEvent calls f(ev).
func (f EventFunc) HandleEvent(ev *Event) { f(ev) }

// EventRecorder is an EventSink that keeps every event in memory.
type EventRecorder struct {
	mu     sync.Mutex
	events []*Event
}

// HandleEvent records ev.
func (r *EventRecorder) HandleEvent(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the recorded events in commit order.
func (r *EventRecorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events in commit order.
func (r *EventRecorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// Reset drops all recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
