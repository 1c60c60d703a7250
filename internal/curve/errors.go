// internal/curve/errors.go
package curve

import (
	"errors"

	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

var (
	// ErrMathOverflow is re-exported so callers can match it without
	// importing the arithmetic package.
	ErrMathOverflow = checked.ErrMathOverflow

	// ErrInsufficientLiquidity means the requested amount exceeds what the
	// curve can deliver from its reserves.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInvalidAmount means a zero or otherwise out-of-domain trade size.
	ErrInvalidAmount = errors.New("invalid amount")

	ErrUnknownKind = errors.New("unknown curve kind")
	ErrWrongKind   = errors.New("operation not supported by curve kind")
)
