// internal/valuation/valuation.go
package valuation

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// LamportsPerSOL is the scale used when the rate is quoted per whole base coin.
const LamportsPerSOL = 1_000_000_000

var ErrInvalidRate = errors.New("invalid valuation rate")

// Rate converts base units into valuation units: value = base * Price / Scale.
// A SOL/USD quote with 6 decimals is Rate{Price: usd6, Scale: LamportsPerSOL}.
type Rate struct {
	Price uint64
	Scale uint64
}

// Identity values base units as themselves.
func Identity() Rate {
	return Rate{Price: 1, Scale: 1}
}

func (r Rate) Validate() error {
	if r.Scale == 0 {
		return fmt.Errorf("%w: zero scale", ErrInvalidRate)
	}
	return nil
}

// MarketCap returns price * circulating * rate.Price / rate.Scale, where
// price is the whole-unit spot price in base units per token. All products are
// taken before the single floor division, so a price that floored to zero
// values the sale at zero.
func MarketCap(price, circulating uint64, r Rate) (uint64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if price == 0 || circulating == 0 || r.Price == 0 {
		return 0, nil
	}

	value, err := checked.From64(price).Mul64(circulating)
	if err != nil {
		return 0, err
	}
	if value, err = value.Mul64(r.Price); err != nil {
		return 0, err
	}
	mcap, err := value.Div64(r.Scale)
	if err != nil {
		return 0, err
	}
	return mcap.Uint64()
}

// Crossed reports whether a sale still trading should graduate.
func Crossed(marketCap, threshold uint64, active bool) bool {
	return active && marketCap >= threshold
}
