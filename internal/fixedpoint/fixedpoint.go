// Package fixedpoint holds the scaled integer arithmetic used by the reward ledger.
//
// All values are unsigned 256-bit integers carried as *big.Int. Products are formed
// at full width before a single division, and every division truncates toward zero.
// Results that do not fit in 256 bits are rejected with ErrOverflow.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow     = errors.New("fixedpoint: overflow")
	ErrNegative     = errors.New("fixedpoint: negative value")
	ErrDivideByZero = errors.New("fixedpoint: division by zero")
)

// Scale is the precision factor applied to reward-per-stake accumulators (1e18).
var Scale = uint256.NewInt(1_000_000_000_000_000_000)

// ScaleBig returns Scale as a fresh *big.Int.
func ScaleBig() *big.Int {
	return Scale.ToBig()
}

func toUint(value *big.Int) (*uint256.Int, error) {
	if value == nil {
		return new(uint256.Int), nil
	}
	if value.Sign() < 0 {
		return nil, ErrNegative
	}
	out, overflow := uint256.FromBig(value)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Mul returns a*b.
func Mul(a, b *big.Int) (*big.Int, error) {
	x, err := toUint(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint(b)
	if err != nil {
		return nil, err
	}
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

// Add returns a+b.
func Add(a, b *big.Int) (*big.Int, error) {
	x, err := toUint(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint(b)
	if err != nil {
		return nil, err
	}
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

// Sub returns a-b and fails when b > a.
func Sub(a, b *big.Int) (*big.Int, error) {
	x, err := toUint(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint(b)
	if err != nil {
		return nil, err
	}
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrNegative
	}
	return z.ToBig(), nil
}

// Div returns a/d truncated toward zero.
func Div(a, d *big.Int) (*big.Int, error) {
	x, err := toUint(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint(d)
	if err != nil {
		return nil, err
	}
	if y.IsZero() {
		return nil, ErrDivideByZero
	}
	return new(uint256.Int).Div(x, y).ToBig(), nil
}

// MulDiv returns a*b/d. The product must fit in 256 bits, matching checked
// 256-bit arithmetic; the quotient is truncated toward zero.
func MulDiv(a, b, d *big.Int) (*big.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(product, d)
}

// MulMulDiv returns a*b*c/d with the same overflow and rounding rules as MulDiv.
func MulMulDiv(a, b, c, d *big.Int) (*big.Int, error) {
	ab, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return MulDiv(ab, c, d)
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// IsPositive reports whether value is non-nil and greater than zero.
func IsPositive(value *big.Int) bool {
	return value != nil && value.Sign() > 0
}

// Clone returns a copy of value, treating nil as zero.
func Clone(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(value)
}

// ParseAmount parses a base-10 integer amount.
func ParseAmount(input string) (*big.Int, bool) {
	if input == "" {
		return new(big.Int), true
	}
	value, ok := new(big.Int).SetString(input, 10)
	if !ok || value.Sign() < 0 {
		return nil, false
	}
	if value.BitLen() > 256 {
		return nil, false
	}
	return value, true
}
