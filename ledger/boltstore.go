package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta    = []byte("meta")
	bucketHolders = []byte("holders")
	bucketEvents  = []byte("events")

	keyState = []byte("state")
)

// BoltStore persists ledger state in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketHolders, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *BoltStore) Path() string { return s.db.Path() }

// Load reads the state and every holder record.
func (s *BoltStore) Load() (*State, []*Holder, error) {
	state := NewState()
	var holders []*Holder
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(bucketMeta).Get(keyState); data != nil {
			decoded, err := DeserializeState(data)
			if err != nil {
				return fmt.Errorf("boltstore: decode state: %w", err)
			}
			state = decoded
		}
		return tx.Bucket(bucketHolders).ForEach(func(k, v []byte) error {
			h, err := DeserializeHolder(v)
			if err != nil {
				return fmt.Errorf("boltstore: decode holder %x: %w", k, err)
			}
			holders = append(holders, h)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return state, holders, nil
}

// boltWriter stages writes in an open bbolt transaction.
type boltWriter struct {
	tx *bbolt.Tx
}

func (w *boltWriter) PutState(st *State) error {
	if st == nil {
		return ErrNilParam
	}
	if err := w.tx.Bucket(bucketMeta).Put(keyState, SerializeState(st)); err != nil {
		return fmt.Errorf("boltstore: put state: %w", err)
	}
	return nil
}

func (w *boltWriter) PutHolder(h *Holder) error {
	if h == nil {
		return ErrNilParam
	}
	if err := w.tx.Bucket(bucketHolders).Put(h.Address.Bytes(), SerializeHolder(h)); err != nil {
		return fmt.Errorf("boltstore: put holder: %w", err)
	}
	return nil
}

func (w *boltWriter) AppendEvent(ev *Event) error {
	if ev == nil {
		return ErrNilParam
	}
	b := w.tx.Bucket(bucketEvents)
	key := seqKey(ev.Seq)
	if b.Get(key) != nil {
		return fmt.Errorf("%w: duplicate event seq %d", ErrInvariant, ev.Seq)
	}
	if err := b.Put(key, SerializeEvent(ev)); err != nil {
		return fmt.Errorf("boltstore: put event: %w", err)
	}
	return nil
}

// Update runs fn inside one bbolt read-write transaction. An error from fn
// rolls back every write it staged.
func (s *BoltStore) Update(fn func(w StateWriter) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltWriter{tx: tx})
	})
}

// Events returns journaled events with Seq > after, in sequence order.
func (s *BoltStore) Events(after uint64, limit int) ([]*Event, error) {
	var events []*Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(seqKey(after + 1)); k != nil; k, v = c.Next() {
			ev, err := DeserializeEvent(v)
			if err != nil {
				return fmt.Errorf("boltstore: decode event %x: %w", k, err)
			}
			events = append(events, ev)
			if limit > 0 && len(events) == limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list events: %w", err)
	}
	return events, nil
}
