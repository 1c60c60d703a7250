// internal/curve/linear.go
package curve

import (
	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// Linear prices the i-th token (0-indexed from zero sold) at BasePrice + i*Slope.
// Buying or selling a block of tokens costs the arithmetic-series sum of
// the prices of the tokens in that block.
type Linear struct {
	BasePrice uint64
	Slope     uint64
}

// PriceAt returns the price of the next token when sold tokens are already issued.
func (c Linear) PriceAt(sold uint64) (uint64, error) {
	step, err := checked.Mul(sold, c.Slope)
	if err != nil {
		return 0, err
	}
	return checked.Add(c.BasePrice, step)
}

// Cost returns the base amount needed to buy n tokens starting at sold:
//
//	n*base + slope*(n*(2*sold + n - 1))/2
func (c Linear) Cost(sold, n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrInvalidAmount
	}

	// 2*sold + n - 1
	span, err := checked.From64(sold).Mul64(2)
	if err != nil {
		return 0, err
	}
	if span, err = span.Add64(n - 1); err != nil {
		return 0, err
	}

	return c.series(n, span)
}

// Refund returns the base amount released by selling the top n of sold tokens,
// i.e. the sum of prices for indices sold-n ... sold-1:
//
//	n*base + slope*(n*(2*(sold-1) - (n-1)))/2
func (c Linear) Refund(sold, n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrInvalidAmount
	}
	if n > sold {
		return 0, ErrInsufficientLiquidity
	}

	// 2*(sold-1) - (n-1); sold >= n >= 1 keeps both terms non-negative
	span, err := checked.From64(sold - 1).Mul64(2)
	if err != nil {
		return 0, err
	}
	if span, err = span.Sub64(n - 1); err != nil {
		return 0, err
	}

	return c.series(n, span)
}

// series evaluates n*base + slope*(n*span)/2. n*span is always even for the
// spans produced by Cost and Refund, so the halving is exact.
func (c Linear) series(n uint64, span checked.U128) (uint64, error) {
	flat, err := checked.From64(n).Mul64(c.BasePrice)
	if err != nil {
		return 0, err
	}

	ramp, err := span.Mul64(n)
	if err != nil {
		return 0, err
	}
	if ramp, err = ramp.Mul64(c.Slope); err != nil {
		return 0, err
	}
	if ramp, err = ramp.Div64(2); err != nil {
		return 0, err
	}

	total, err := flat.Add(ramp)
	if err != nil {
		return 0, err
	}
	return total.Uint64()
}
