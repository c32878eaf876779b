package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// --- Codec ---

func TestSerializeHolder_RoundTrip(t *testing.T) {
	h := &Holder{
		Address:    makeAddr(0xAB),
		Shares:     ether(1000),
		RewardDebt: dec("123456789012345678901234567890123456789"),
		Claimable:  u(42),
		Dust:       dec("999999999999999999999999999999999999"),
		Claimed:    u(7),
	}
	data := SerializeHolder(h)
	assert.Len(t, data, holderSize)

	decoded, err := DeserializeHolder(data)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestSerializeState_RoundTrip(t *testing.T) {
	s := NewState()
	s.TotalShares = ether(4)
	s.TotalPooledValue = ether(16)
	s.Accumulator = dec("250000000000000000000000000000000000")
	s.RewardRemainder = u(3)
	s.TotalRewards = ether(5)
	s.TotalClaimed = ether(1)
	s.EventSeq = 99

	decoded, err := DeserializeState(SerializeState(s))
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestDeserialize_WrongSize(t *testing.T) {
	_, err := DeserializeHolder([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = DeserializeState([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = DeserializeEvent([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDeserializeEvent_UnknownKind(t *testing.T) {
	data := SerializeEvent(&Event{Seq: 1, Kind: EventDeposit, Amount: u(1), Shares: u(1)})
	data[8] = 0xFF
	_, err := DeserializeEvent(data)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

// --- MemStore ---

func TestMemStore_UpdateIsAtomic(t *testing.T) {
	store := NewMemStore()
	err := store.Update(func(w StateWriter) error {
		require.NoError(t, w.PutHolder(newHolder(makeAddr(0x01))))
		return ErrPaymentFailed
	})
	assert.ErrorIs(t, err, ErrPaymentFailed)

	_, holders, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, holders)
}

func TestMemStore_EventsAreCopies(t *testing.T) {
	store := NewMemStore()
	ev := &Event{Seq: 1, Kind: EventDeposit, Holder: makeAddr(0x01), Amount: u(7), Shares: u(7)}
	require.NoError(t, store.Update(func(w StateWriter) error {
		return w.AppendEvent(ev)
	}))
	ev.Amount.SetUint64(99)
	ev.Shares.SetUint64(99)

	got, err := store.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, u(7), got[0].Amount)
	assert.Equal(t, u(7), got[0].Shares)

	got[0].Amount.SetUint64(1)
	again, err := store.Events(0, 0)
	require.NoError(t, err)
	assert.Equal(t, u(7), again[0].Amount)
}

// --- BoltStore ---

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	l, err := Open(store)
	require.NoError(t, err)
	mustDeposit(t, l, makeAddr(0x01), ether(3))
	mustDeposit(t, l, makeAddr(0x02), ether(1))
	mustReward(t, l, ether(2))
	_, err = l.Claim(ctx, makeAddr(0x02), makeAddr(0x02))
	require.NoError(t, err)
	want := l.Snapshot()
	wantHolders := l.Holders()
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	l2, err := Open(reopened)
	require.NoError(t, err)
	assert.Equal(t, want, l2.Snapshot())
	assert.Equal(t, wantHolders, l2.Holders())
	assert.Equal(t, dec("1500000000000000000"), l2.ClaimableRewardsOf(makeAddr(0x01)))
	assert.Equal(t, dec("500000000000000000"), l2.ClaimedRewardsOf(makeAddr(0x02)))

	events, err := l2.Events(0, 0)
	require.NoError(t, err)
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
	assert.Equal(t, []EventKind{EventDeposit, EventDeposit, EventRewardsReceived, EventRewardClaimed}, kinds)
}

func TestBoltStore_RefusedPaymentRollsBack(t *testing.T) {
	ctx := context.Background()
	store := tempBoltStore(t)
	contract := makeAddr(0xCC)

	l, err := Open(store, WithPaymentSink(newRecordingSink(contract)))
	require.NoError(t, err)
	mustDeposit(t, l, makeAddr(0x01), u(10))
	mustReward(t, l, u(10))

	_, err = l.Claim(ctx, makeAddr(0x01), contract)
	require.ErrorIs(t, err, ErrPaymentFailed)

	state, holders, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, l.Snapshot(), state)
	require.Len(t, holders, 1)
	assert.True(t, holders[0].Claimed.IsZero())

	events, err := store.Events(0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestBoltStore_EventsPaging(t *testing.T) {
	store := tempBoltStore(t)
	l, err := Open(store)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		mustDeposit(t, l, makeAddr(0x01), u(10))
	}

	events, err := store.Events(2, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(3), events[0].Seq)
	assert.Equal(t, uint64(4), events[1].Seq)

	events, err = store.Events(5, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOpen_NilStore(t *testing.T) {
	_, err := Open(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}
