package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	wordSize = 32

	// address(20) + shares, debt, claimable, dust, claimed
	holderSize = common.AddressLength + 5*wordSize

	// six totals + event seq(8)
	stateSize = 6*wordSize + 8

	// seq(8) + kind(1) + holder(20) + counterparty(20) + amount + shares
	eventSize = 8 + 1 + 2*common.AddressLength + 2*wordSize
)

func putWord(buf []byte, x *uint256.Int) {
	w := cloneInt(x).Bytes32()
	copy(buf, w[:])
}

func getWord(buf []byte) *uint256.Int {
	return new(uint256.Int).SetBytes32(buf[:wordSize])
}

// SerializeHolder encodes a holder record to its fixed-width binary form.
func SerializeHolder(h *Holder) []byte {
	buf := make([]byte, holderSize)
	copy(buf[0:20], h.Address[:])
	offset := common.AddressLength
	for _, x := range []*uint256.Int{h.Shares, h.RewardDebt, h.Claimable, h.Dust, h.Claimed} {
		putWord(buf[offset:offset+wordSize], x)
		offset += wordSize
	}
	return buf
}

// DeserializeHolder decodes a holder record.
func DeserializeHolder(data []byte) (*Holder, error) {
	if len(data) != holderSize {
		return nil, fmt.Errorf("%w: holder expected %d bytes, got %d", ErrInvalidRecord, holderSize, len(data))
	}
	h := &Holder{Address: common.BytesToAddress(data[0:20])}
	offset := common.AddressLength
	for _, dst := range []**uint256.Int{&h.Shares, &h.RewardDebt, &h.Claimable, &h.Dust, &h.Claimed} {
		*dst = getWord(data[offset:])
		offset += wordSize
	}
	return h, nil
}

// SerializeState encodes the global state.
func SerializeState(s *State) []byte {
	buf := make([]byte, stateSize)
	offset := 0
	for _, x := range []*uint256.Int{s.TotalShares, s.TotalPooledValue, s.Accumulator, s.RewardRemainder, s.TotalRewards, s.TotalClaimed} {
		putWord(buf[offset:offset+wordSize], x)
		offset += wordSize
	}
	binary.BigEndian.PutUint64(buf[offset:offset+8], s.EventSeq)
	return buf
}

// DeserializeState decodes the global state.
func DeserializeState(data []byte) (*State, error) {
	if len(data) != stateSize {
		return nil, fmt.Errorf("%w: state expected %d bytes, got %d", ErrInvalidRecord, stateSize, len(data))
	}
	s := &State{}
	offset := 0
	for _, dst := range []**uint256.Int{&s.TotalShares, &s.TotalPooledValue, &s.Accumulator, &s.RewardRemainder, &s.TotalRewards, &s.TotalClaimed} {
		*dst = getWord(data[offset:])
		offset += wordSize
	}
	s.EventSeq = binary.BigEndian.Uint64(data[offset : offset+8])
	return s, nil
}

// SerializeEvent encodes a journaled event.
func SerializeEvent(ev *Event) []byte {
	buf := make([]byte, eventSize)
	binary.BigEndian.PutUint64(buf[0:8], ev.Seq)
	buf[8] = byte(ev.Kind)
	copy(buf[9:29], ev.Holder[:])
	copy(buf[29:49], ev.Counterparty[:])
	putWord(buf[49:81], ev.Amount)
	putWord(buf[81:113], ev.Shares)
	return buf
}

// DeserializeEvent decodes a journaled event.
func DeserializeEvent(data []byte) (*Event, error) {
	if len(data) != eventSize {
		return nil, fmt.Errorf("%w: event expected %d bytes, got %d", ErrInvalidRecord, eventSize, len(data))
	}
	ev := &Event{
		Seq:          binary.BigEndian.Uint64(data[0:8]),
		Kind:         EventKind(data[8]),
		Holder:       common.BytesToAddress(data[9:29]),
		Counterparty: common.BytesToAddress(data[29:49]),
		Amount:       getWord(data[49:81]),
		Shares:       getWord(data[81:113]),
	}
	if _, ok := eventNames[ev.Kind]; !ok {
		return nil, fmt.Errorf("%w: unknown event kind %d", ErrInvalidRecord, data[8])
	}
	return ev, nil
}

// seqKey encodes an event sequence number as an 8-byte big-endian key.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
