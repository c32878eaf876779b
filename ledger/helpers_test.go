package ledger

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func makeAddr(seed byte) common.Address {
	var addr common.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

// ether returns n * 10^18.
func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func dec(s string) *uint256.Int { return uint256.MustFromDecimal(s) }

// recordingSink records accepted payments and refuses payments to listed
// recipients.
type recordingSink struct {
	payments []Payment
	refuse   map[common.Address]bool
}

func newRecordingSink(refuse ...common.Address) *recordingSink {
	s := &recordingSink{refuse: make(map[common.Address]bool)}
	for _, a := range refuse {
		s.refuse[a] = true
	}
	return s
}

func (s *recordingSink) Pay(_ context.Context, payments []Payment) error {
	for _, p := range payments {
		if s.refuse[p.To] {
			return &PaymentError{Payment: p, Err: ErrRecipientRefused}
		}
	}
	s.payments = append(s.payments, payments...)
	return nil
}

func (s *recordingSink) total(kind PaymentKind, to common.Address) *uint256.Int {
	sum := new(uint256.Int)
	for _, p := range s.payments {
		if p.Kind == kind && p.To == to {
			sum.Add(sum, p.Amount)
		}
	}
	return sum
}

func mustDeposit(t *testing.T, l *Ledger, holder common.Address, amount *uint256.Int) *uint256.Int {
	t.Helper()
	minted, err := l.Deposit(context.Background(), holder, amount)
	require.NoError(t, err)
	return minted
}

func mustReward(t *testing.T, l *Ledger, amount *uint256.Int) {
	t.Helper()
	require.NoError(t, l.ReceiveReward(context.Background(), makeAddr(0xEE), amount))
}
