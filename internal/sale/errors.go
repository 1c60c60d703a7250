// internal/sale/errors.go
package sale

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/launchcurve/internal/curve"
)

var (
	ErrMathOverflow          = curve.ErrMathOverflow
	ErrInsufficientLiquidity = curve.ErrInsufficientLiquidity
	ErrInvalidAmount         = curve.ErrInvalidAmount

	ErrSlippageExceeded = errors.New("slippage exceeded")
	ErrAlreadyGraduated = errors.New("sale already graduated")
	ErrNotGraduated     = errors.New("sale has not graduated")
	ErrInvalidMetadata  = errors.New("invalid token metadata")
	ErrInvalidParams    = errors.New("invalid sale parameters")
)

// SlippageExceededError carries the bound that a trade outcome violated.
// For a buy paid in tokens Actual is the gross base cost and Limit the
// maximum; everywhere else Limit is the minimum amount to receive.
type SlippageExceededError struct {
	Direction Direction
	Limit     uint64
	Actual    uint64
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded on %s: limit %d, actual %d", e.Direction, e.Limit, e.Actual)
}

// Is lets errors.Is(err, ErrSlippageExceeded) match.
func (e *SlippageExceededError) Is(target error) bool {
	return target == ErrSlippageExceeded
}

// IsSlippageExceededError reports whether err is or wraps a slippage failure.
func IsSlippageExceededError(err error) bool {
	return errors.Is(err, ErrSlippageExceeded)
}
