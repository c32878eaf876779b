package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PaymentKind distinguishes principal returns from reward payouts.
type PaymentKind uint8

const (
	PaymentPrincipal PaymentKind = iota + 1
	PaymentReward
)

func (k PaymentKind) String() string {
	switch k {
	case PaymentPrincipal:
		return "principal"
	case PaymentReward:
		return "reward"
	default:
		return fmt.Sprintf("PaymentKind(%d)", uint8(k))
	}
}

// Payment is a value movement out of the ledger to a recipient.
type Payment struct {
	Kind   PaymentKind
	To     common.Address
	Amount *uint256.Int
}

// PaymentSink executes the payments of one operation. A sink must apply the
// whole batch or none of it; any returned error aborts the operation.
type PaymentSink interface {
	Pay(ctx context.Context, payments []Payment) error
}

// PaymentFunc adapts a function to PaymentSink.
type PaymentFunc func(ctx context.Context, payments []Payment) error

// Pay calls f(ctx, payments).
func (f PaymentFunc) Pay(ctx context.Context, payments []Payment) error { return f(ctx, payments) }

// NopSink accepts every payment without moving anything.
type NopSink struct{}

// Pay accepts the batch.
func (NopSink) Pay(context.Context, []Payment) error { return nil }

// PaymentError reports the payment a sink refused.
type PaymentError struct {
	Payment Payment
	Err     error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s payment of %s to %s: %v", e.Payment.Kind, cloneInt(e.Payment.Amount).Dec(), e.Payment.To.Hex(), e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }
