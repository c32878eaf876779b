package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// Observer is notified about committed events, the resulting state and failed
// operations. It is the hook used by the metrics package.
type Observer interface {
	ObserveEvent(ev *Event)
	ObserveState(st *State, holders int)
	ObserveFailure(op string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(*Event)          {}
func (nopObserver) ObserveState(*State, int)     {}
func (nopObserver) ObserveFailure(string, error) {}

// Ledger is the shares-and-rewards ledger. Mutating operations serialize on an
// exclusive lock; queries share a read lock and see a consistent state.
type Ledger struct {
	mu       sync.RWMutex
	state    *State
	holders  map[common.Address]*Holder
	store    Store
	sink     PaymentSink
	events   EventSink
	observer Observer
	log      logrus.FieldLogger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPaymentSink sets the sink that executes principal and reward payments.
func WithPaymentSink(sink PaymentSink) Option {
	return func(l *Ledger) {
		if sink != nil {
			l.sink = sink
		}
	}
}

// WithEventSink sets the sink notified after each committed operation.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) { l.events = sink }
}

// WithObserver sets the observer notified after each operation.
func WithObserver(obs Observer) Option {
	return func(l *Ledger) {
		if obs != nil {
			l.observer = obs
		}
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates an empty ledger backed by a MemStore.
func New(opts ...Option) *Ledger {
	l := newLedger(NewMemStore(), opts)
	return l
}

// Open creates a ledger that resumes from the state persisted in store.
func Open(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	state, holders, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("ledger: load state: %w", err)
	}
	l := newLedger(store, opts)
	l.state = state
	for _, h := range holders {
		l.holders[h.Address] = h
	}
	if err := l.audit(); err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"holders":      len(l.holders),
		"total_shares": l.state.TotalShares.Dec(),
		"event_seq":    l.state.EventSeq,
	}).Info("ledger: state loaded")
	return l, nil
}

func newLedger(store Store, opts []Option) *Ledger {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Ledger{
		state:    NewState(),
		holders:  make(map[common.Address]*Holder),
		store:    store,
		sink:     NopSink{},
		observer: nopObserver{},
		log:      discard,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// txn is the working copy an operation mutates before commit.
type txn struct {
	base     map[common.Address]*Holder
	state    *State
	holders  map[common.Address]*Holder
	order    []common.Address
	events   []*Event
	payments []Payment
}

func (l *Ledger) begin() *txn {
	return &txn{
		base:    l.holders,
		state:   l.state.Clone(),
		holders: make(map[common.Address]*Holder),
	}
}

// holder returns the working copy of addr's record, creating it if needed.
func (t *txn) holder(addr common.Address) *Holder {
	if h, ok := t.holders[addr]; ok {
		return h
	}
	var h *Holder
	if existing, ok := t.base[addr]; ok {
		h = existing.Clone()
	} else {
		h = newHolder(addr)
	}
	t.holders[addr] = h
	t.order = append(t.order, addr)
	return h
}

func (t *txn) emit(ev *Event) {
	t.state.EventSeq++
	ev.Seq = t.state.EventSeq
	t.events = append(t.events, ev)
}

func (t *txn) pay(kind PaymentKind, to common.Address, amount *uint256.Int) {
	t.payments = append(t.payments, Payment{Kind: kind, To: to, Amount: cloneInt(amount)})
}

// commit persists t and executes its payments in one store transaction, then
// publishes it. On error nothing is published.
func (l *Ledger) commit(ctx context.Context, t *txn) error {
	err := l.store.Update(func(w StateWriter) error {
		if err := w.PutState(t.state); err != nil {
			return err
		}
		for _, addr := range t.order {
			if err := w.PutHolder(t.holders[addr]); err != nil {
				return err
			}
		}
		for _, ev := range t.events {
			if err := w.AppendEvent(ev); err != nil {
				return err
			}
		}
		return l.pay(ctx, t.payments)
	})
	if err != nil {
		return err
	}

	l.state = t.state
	for _, addr := range t.order {
		l.holders[addr] = t.holders[addr]
	}
	for _, ev := range t.events {
		if l.events != nil {
			l.events.HandleEvent(ev)
		}
		l.observer.ObserveEvent(ev)
	}
	l.observer.ObserveState(l.state, len(l.holders))
	return nil
}

func (l *Ledger) pay(ctx context.Context, payments []Payment) error {
	if len(payments) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := l.sink.Pay(ctx, payments)
	if err == nil {
		return nil
	}
	var perr *PaymentError
	if errors.As(err, &perr) && perr.Payment.Kind == PaymentPrincipal {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
}

func (l *Ledger) fail(op string, err error) error {
	l.observer.ObserveFailure(op, err)
	entry := l.log.WithField("op", op).WithError(err)
	if errors.Is(err, ErrPaymentFailed) || errors.Is(err, ErrTransferFailed) || errors.Is(err, ErrInvariant) {
		entry.Warn("ledger: operation aborted")
	} else {
		entry.Debug("ledger: operation rejected")
	}
	return err
}

// Deposit credits holder with shares for principal that has already been
// moved into the pool, and returns the number of shares minted.
func (l *Ledger) Deposit(ctx context.Context, holder common.Address, principal *uint256.Int) (*uint256.Int, error) {
	const op = "deposit"
	if principal == nil {
		return nil, l.fail(op, fmt.Errorf("%w: principal", ErrNilParam))
	}
	if principal.IsZero() {
		return nil, l.fail(op, ErrZeroAmount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	h := t.holder(holder)
	if err := settle(t.state, h); err != nil {
		return nil, l.fail(op, err)
	}

	var minted *uint256.Int
	switch {
	case t.state.TotalShares.IsZero():
		minted = cloneInt(principal)
	case t.state.TotalPooledValue.IsZero():
		return nil, l.fail(op, fmt.Errorf("%w: %s shares outstanding with no pooled value",
			ErrInvariant, t.state.TotalShares.Dec()))
	default:
		var err error
		minted, err = mulDiv(principal, t.state.TotalShares, t.state.TotalPooledValue, "mint shares")
		if err != nil {
			return nil, l.fail(op, err)
		}
	}
	if minted.IsZero() {
		return nil, l.fail(op, fmt.Errorf("%w: principal %s at %s shares / %s pooled",
			ErrDepositTooSmall, principal.Dec(), t.state.TotalShares.Dec(), t.state.TotalPooledValue.Dec()))
	}

	var err error
	if t.state.TotalShares, err = add(t.state.TotalShares, minted, "total shares"); err != nil {
		return nil, l.fail(op, err)
	}
	if t.state.TotalPooledValue, err = add(t.state.TotalPooledValue, principal, "pooled value"); err != nil {
		return nil, l.fail(op, err)
	}
	if h.Shares, err = add(h.Shares, minted, "holder shares"); err != nil {
		return nil, l.fail(op, err)
	}
	t.emit(&Event{Kind: EventDeposit, Holder: holder, Amount: cloneInt(principal), Shares: cloneInt(minted)})

	if err := l.commit(ctx, t); err != nil {
		return nil, l.fail(op, err)
	}
	l.log.WithFields(logrus.Fields{
		"holder":    holder.Hex(),
		"principal": principal.Dec(),
		"shares":    minted.Dec(),
	}).Debug("ledger: deposit")
	return minted, nil
}

// Withdraw burns shares from holder and returns the principal they redeem.
// With claim set, the holder's claimable reward is paid to the holder in the
// same operation and returned as rewards.
func (l *Ledger) Withdraw(ctx context.Context, holder common.Address, shares *uint256.Int, claim bool) (principal, rewards *uint256.Int, err error) {
	const op = "withdraw"
	if shares == nil {
		return nil, nil, l.fail(op, fmt.Errorf("%w: shares", ErrNilParam))
	}
	if shares.IsZero() {
		return nil, nil, l.fail(op, ErrZeroAmount)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	h := t.holder(holder)
	if h.Shares.Lt(shares) {
		return nil, nil, l.fail(op, fmt.Errorf("%w: have %s, want %s", ErrInsufficientShares, h.Shares.Dec(), shares.Dec()))
	}
	// Settle against the balance held before the burn.
	if err := settle(t.state, h); err != nil {
		return nil, nil, l.fail(op, err)
	}

	principal, err = mulDiv(shares, t.state.TotalPooledValue, t.state.TotalShares, "redeem shares")
	if err != nil {
		return nil, nil, l.fail(op, err)
	}
	if t.state.TotalShares, err = sub(t.state.TotalShares, shares, "total shares"); err != nil {
		return nil, nil, l.fail(op, err)
	}
	if t.state.TotalPooledValue, err = sub(t.state.TotalPooledValue, principal, "pooled value"); err != nil {
		return nil, nil, l.fail(op, err)
	}
	if h.Shares, err = sub(h.Shares, shares, "holder shares"); err != nil {
		return nil, nil, l.fail(op, err)
	}
	if !principal.IsZero() {
		t.pay(PaymentPrincipal, holder, principal)
	}
	t.emit(&Event{Kind: EventWithdraw, Holder: holder, Amount: cloneInt(principal), Shares: cloneInt(shares)})

	rewards = zero()
	if claim {
		if rewards, err = t.claim(h, holder); err != nil {
			return nil, nil, l.fail(op, err)
		}
	}

	if err := l.commit(ctx, t); err != nil {
		return nil, nil, l.fail(op, err)
	}
	l.log.WithFields(logrus.Fields{
		"holder":    holder.Hex(),
		"shares":    shares.Dec(),
		"principal": principal.Dec(),
		"rewards":   rewards.Dec(),
	}).Debug("ledger: withdraw")
	return principal, rewards, nil
}

// Transfer moves shares from one holder to another. Both sides are settled
// first, so reward accrued before the transfer stays with its earner.
func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, shares *uint256.Int) error {
	const op = "transfer"
	if shares == nil {
		return l.fail(op, fmt.Errorf("%w: shares", ErrNilParam))
	}
	if shares.IsZero() {
		return l.fail(op, ErrZeroAmount)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.begin()
	src := t.holder(from)
	if src.Shares.Lt(shares) {
		return l.fail(op, fmt.Errorf("%w: have %s, want %s", ErrInsufficientShares, src.Shares.Dec(), shares.Dec()))
	}
	dst := t.holder(to)
	if err := settle(t.state, src); err != nil {
		return l.fail(op, err)
	}
	if err := settle(t.state, dst); err != nil {
		return l.fail(op, err)
	}

	var err error
	if src.Shares, err = sub(src.Shares, shares, "sender shares"); err != nil {
		return l.fail(op, err)
	}
	if dst.Shares, err = add(dst.Shares, shares, "recipient shares"); err != nil {
		return l.fail(op, err)
	}
	t.emit(&Event{Kind: EventTransfer, Holder: from, Counterparty: to, Shares: cloneInt(shares), Amount: zero()})

	if err := l.commit(ctx, t); err != nil {
		return l.fail(op, err)
	}
	l.log.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"shares": shares.Dec(),
	}).Debug("ledger: transfer")
	return nil
}
