package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Store persists ledger state. Update must apply all writes made by fn
// atomically, and none of them if fn returns an error.
type Store interface {
	// Load returns the persisted state and holders. A fresh store returns
	// NewState() and no holders.
	Load() (*State, []*Holder, error)

	// Update runs fn inside a single write transaction.
	Update(fn func(w StateWriter) error) error

	// Events returns up to limit journaled events with Seq > after.
	// A limit <= 0 returns all of them.
	Events(after uint64, limit int) ([]*Event, error)
}

// StateWriter stages writes inside a Store transaction.
type StateWriter interface {
	PutState(s *State) error
	PutHolder(h *Holder) error
	AppendEvent(ev *Event) error
}

// MemStore is an in-memory implementation of Store.
type MemStore struct {
	mu      sync.RWMutex
	state   *State
	holders map[common.Address]*Holder
	events  []*Event
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		state:   NewState(),
		holders: make(map[common.Address]*Holder),
	}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// Load returns copies of the stored records.
func (s *MemStore) Load() (*State, []*Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holders := make([]*Holder, 0, len(s.holders))
	for _, h := range s.holders {
		holders = append(holders, h.Clone())
	}
	sortHolders(holders)
	return s.state.Clone(), holders, nil
}

type memBatch struct {
	state   *State
	holders []*Holder
	events  []*Event
}

func (b *memBatch) PutState(st *State) error {
	if st == nil {
		return ErrNilParam
	}
	b.state = st.Clone()
	return nil
}

func (b *memBatch) PutHolder(h *Holder) error {
	if h == nil {
		return ErrNilParam
	}
	b.holders = append(b.holders, h.Clone())
	return nil
}

func (b *memBatch) AppendEvent(ev *Event) error {
	if ev == nil {
		return ErrNilParam
	}
	b.events = append(b.events, ev.Clone())
	return nil
}

// Update stages writes in a batch and applies them only if fn succeeds.
func (s *MemStore) Update(fn func(w StateWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := &memBatch{}
	if err := fn(batch); err != nil {
		return err
	}
	if batch.state != nil {
		s.state = batch.state
	}
	for _, h := range batch.holders {
		s.holders[h.Address] = h
	}
	s.events = append(s.events, batch.events...)
	return nil
}

// Events returns journaled events with Seq > after.
func (s *MemStore) Events(after uint64, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Event
	for _, ev := range s.events {
		if ev.Seq <= after {
			continue
		}
		out = append(out, ev.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func sortHolders(holders []*Holder) {
	sort.Slice(holders, func(i, j int) bool {
		return bytes.Compare(holders[i].Address[:], holders[j].Address[:]) < 0
	})
}
