// internal/sale/graduation.go
package sale

import (
	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// Migration is what a graduated sale hands to the external pool: all base
// held by the curve plus accrued liquidity fees, paired with the unsold supply.
type Migration struct {
	Base   uint64
	Tokens uint64
}

// IsZero reports an empty migration, as returned by a repeated finalize.
func (m Migration) IsZero() bool {
	return m.Base == 0 && m.Tokens == 0
}

// FinalizeGraduation reads out the final reserve snapshot of a graduated sale
// and zeroes its tradable reserves. Calling it again on an already migrated
// sale is a no-op so a host can retry after a failed transfer.
func FinalizeGraduation(s Sale) (Sale, Migration, error) {
	if s.Status != StatusGraduated {
		return s, Migration{}, ErrNotGraduated
	}
	if s.Migrated {
		return s, Migration{}, nil
	}

	base, err := checked.Add(s.Curve.RealBaseReserve, s.LiquidityFees)
	if err != nil {
		return s, Migration{}, err
	}
	m := Migration{
		Base:   base,
		Tokens: s.TokensRemaining(),
	}

	next := s
	next.Curve.RealBaseReserve = 0
	next.LiquidityFees = 0
	next.Migrated = true
	if err := next.Validate(); err != nil {
		return s, Migration{}, err
	}
	return next, m, nil
}
