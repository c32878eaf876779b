package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ScaleDecimals is the number of decimal places carried by the accumulator.
const ScaleDecimals = 36

// scale magnifies the reward-per-share accumulator. With 10^36 a reward of one
// wei per 10^36 outstanding shares still moves the accumulator.
var scale = uint256.MustFromDecimal("1000000000000000000000000000000000000")

// Scale returns the fixed-point magnification factor of the accumulator.
func Scale() *uint256.Int {
	return new(uint256.Int).Set(scale)
}

func zero() *uint256.Int { return new(uint256.Int) }

func cloneInt(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

// add returns x+y or ErrOverflow.
func add(x, y *uint256.Int, what string) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, what)
	}
	return z, nil
}

// sub returns x-y; an underflow is an invariant violation.
func sub(x, y *uint256.Int, what string) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s underflow", ErrInvariant, what)
	}
	return z, nil
}

// mulDiv returns floor(x*y/d) using a 512-bit intermediate product.
func mulDiv(x, y, d *uint256.Int, what string) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: %s divides by zero", ErrInvariant, what)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, what)
	}
	return z, nil
}

// mulDivRem returns floor((x*y + carry) / d) and the new remainder, without
// ever materialising x*y in 256 bits.
func mulDivRem(x, y, carry, d *uint256.Int, what string) (*uint256.Int, *uint256.Int, error) {
	q, err := mulDiv(x, y, d, what)
	if err != nil {
		return nil, nil, err
	}
	r := new(uint256.Int).MulMod(x, y, d)
	r, err = add(r, carry, what)
	if err != nil {
		return nil, nil, err
	}
	q, err = add(q, new(uint256.Int).Div(r, d), what)
	if err != nil {
		return nil, nil, err
	}
	return q, new(uint256.Int).Mod(r, d), nil
}
