package checked

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64Helpers(t *testing.T) {
	sum, err := Add(40, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sum)

	_, err = Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = Mul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrMathOverflow)

	// the intermediate product exceeds 64 bits but the quotient does not
	q, err := MulDiv(math.MaxUint64, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64/2), q)

	_, err = MulDiv(1, 1, 0)
	assert.ErrorIs(t, err, ErrMathOverflow)
}

func TestU128Ceiling(t *testing.T) {
	wide := From64(math.MaxUint64)

	// (2^64-1)^2 < 2^128
	sq, err := wide.Mul(wide)
	require.NoError(t, err)

	// (2^64-1)^2 + 2*(2^64-1) = 2^128 - 1, which is still in range
	twice, err := wide.Mul64(2)
	require.NoError(t, err)
	top, err := sq.Add(twice)
	require.NoError(t, err)

	_, err = top.Add64(1)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = sq.Mul64(4)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = top.Uint64()
	assert.ErrorIs(t, err, ErrMathOverflow)
}

func TestU128SubAndDiv(t *testing.T) {
	a := From64(10)

	_, err := a.Sub64(11)
	assert.ErrorIs(t, err, ErrMathOverflow)

	d, err := a.Div64(3)
	require.NoError(t, err)
	v, err := d.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v, "division floors")

	_, err = a.Div(U128{})
	assert.ErrorIs(t, err, ErrMathOverflow)

	assert.True(t, U128{}.IsZero())
	assert.Equal(t, -1, From64(1).Cmp(From64(2)))
	assert.True(t, From64(1).Lt(From64(2)))
	assert.Equal(t, "10", a.String())
}
