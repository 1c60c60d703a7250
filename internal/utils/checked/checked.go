// internal/utils/checked/checked.go
package checked

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrMathOverflow is returned whenever an operation would wrap, underflow
// below zero, exceed 128 bits or divide by zero.
var ErrMathOverflow = errors.New("math overflow")

// max128 = 2^128 - 1
var max128 = func() uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), 128)
	v.SubUint64(&v, 1)
	return v
}()

// U128 is an unsigned accumulator capped at 128 bits.
// The zero value is 0 and values are safe to copy.
type U128 struct {
	v uint256.Int
}

// From64 widens a uint64.
func From64(x uint64) U128 {
	var u U128
	u.v.SetUint64(x)
	return u
}

func (a U128) Add(b U128) (U128, error) {
	var r U128
	r.v.Add(&a.v, &b.v)
	return r.bounded()
}

func (a U128) Sub(b U128) (U128, error) {
	if a.v.Lt(&b.v) {
		return U128{}, ErrMathOverflow
	}
	var r U128
	r.v.Sub(&a.v, &b.v)
	return r, nil
}

// Mul multiplies two 128-bit values. The product of two in-range operands
// always fits the underlying 256-bit word, so only the ceiling is checked.
func (a U128) Mul(b U128) (U128, error) {
	var r U128
	r.v.Mul(&a.v, &b.v)
	return r.bounded()
}

// Div is floor division.
func (a U128) Div(b U128) (U128, error) {
	if b.v.IsZero() {
		return U128{}, ErrMathOverflow
	}
	var r U128
	r.v.Div(&a.v, &b.v)
	return r, nil
}

// Add64, Sub64, Mul64 are shorthands for operating with a uint64 operand.
func (a U128) Add64(b uint64) (U128, error) { return a.Add(From64(b)) }
func (a U128) Sub64(b uint64) (U128, error) { return a.Sub(From64(b)) }
func (a U128) Mul64(b uint64) (U128, error) { return a.Mul(From64(b)) }
func (a U128) Div64(b uint64) (U128, error) { return a.Div(From64(b)) }

// Uint64 narrows the value, failing if it does not fit.
func (a U128) Uint64() (uint64, error) {
	if !a.v.IsUint64() {
		return 0, ErrMathOverflow
	}
	return a.v.Uint64(), nil
}

func (a U128) IsZero() bool { return a.v.IsZero() }

// Cmp returns -1, 0 or +1.
func (a U128) Cmp(b U128) int { return a.v.Cmp(&b.v) }

func (a U128) Lt(b U128) bool { return a.v.Lt(&b.v) }

func (a U128) String() string { return a.v.Dec() }

func (a U128) bounded() (U128, error) {
	if a.v.Gt(&max128) {
		return U128{}, ErrMathOverflow
	}
	return a, nil
}

// Add returns a+b or ErrMathOverflow.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrMathOverflow on underflow.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

// Mul returns a*b or ErrMathOverflow.
func Mul(a, b uint64) (uint64, error) {
	r, err := From64(a).Mul64(b)
	if err != nil {
		return 0, err
	}
	return r.Uint64()
}

// MulDiv computes floor(a*b/d) with the product held in the wide type.
func MulDiv(a, b, d uint64) (uint64, error) {
	p, err := From64(a).Mul64(b)
	if err != nil {
		return 0, err
	}
	q, err := p.Div64(d)
	if err != nil {
		return 0, err
	}
	return q.Uint64()
}
