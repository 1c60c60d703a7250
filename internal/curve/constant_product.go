// internal/curve/constant_product.go
package curve

import (
	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// ConstantProduct is an x*y=k curve whose reserves are offset by immutable
// virtual amounts so the opening price is non-zero.
//
// RealTokenReserve counts tokens already issued by the curve, so the token
// side of the pool shrinks as it grows:
//
//	base  = VirtualBaseReserve + RealBaseReserve
//	token = VirtualTokenReserve - RealTokenReserve
type ConstantProduct struct {
	VirtualBaseReserve  uint64
	VirtualTokenReserve uint64
	RealBaseReserve     uint64
	RealTokenReserve    uint64
}

// Reserves returns the effective base and token reserves.
func (c ConstantProduct) Reserves() (base, token checked.U128, err error) {
	base, err = checked.From64(c.VirtualBaseReserve).Add64(c.RealBaseReserve)
	if err != nil {
		return checked.U128{}, checked.U128{}, err
	}
	token, err = checked.From64(c.VirtualTokenReserve).Sub64(c.RealTokenReserve)
	if err != nil {
		return checked.U128{}, checked.U128{}, err
	}
	return base, token, nil
}

// Product returns k = base*token for the current reserves.
func (c ConstantProduct) Product() (checked.U128, error) {
	base, token, err := c.Reserves()
	if err != nil {
		return checked.U128{}, err
	}
	return base.Mul(token)
}

// TokensOut returns the tokens issued for a post-fee base input x:
//
//	token - floor(k / (base + x))
func (c ConstantProduct) TokensOut(x uint64) (uint64, error) {
	if x == 0 {
		return 0, ErrInvalidAmount
	}

	base, token, err := c.Reserves()
	if err != nil {
		return 0, err
	}
	if token.IsZero() {
		return 0, ErrInsufficientLiquidity
	}
	k, err := base.Mul(token)
	if err != nil {
		return 0, err
	}
	denom, err := base.Add64(x)
	if err != nil {
		return 0, err
	}
	remaining, err := k.Div(denom)
	if err != nil {
		return 0, err
	}
	if token.Lt(remaining) {
		return 0, ErrInsufficientLiquidity
	}
	out, err := token.Sub(remaining)
	if err != nil {
		return 0, err
	}
	return out.Uint64()
}

// BaseOut returns the base released, before fees, for selling n tokens:
//
//	base - floor(k / (token + n))
//
// The result is bounded by the real base reserve; virtual base is never paid out.
func (c ConstantProduct) BaseOut(n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrInvalidAmount
	}
	if n > c.RealTokenReserve {
		return 0, ErrInsufficientLiquidity
	}

	base, token, err := c.Reserves()
	if err != nil {
		return 0, err
	}
	k, err := base.Mul(token)
	if err != nil {
		return 0, err
	}
	denom, err := token.Add64(n)
	if err != nil {
		return 0, err
	}
	remaining, err := k.Div(denom)
	if err != nil {
		return 0, err
	}

	out, err := base.Sub(remaining)
	if err != nil {
		return 0, err
	}
	if out.Cmp(checked.From64(c.RealBaseReserve)) > 0 {
		return 0, ErrInsufficientLiquidity
	}
	return out.Uint64()
}

// SpotPrice is floor(base/token), or 0 for an exhausted token side.
func (c ConstantProduct) SpotPrice() (uint64, error) {
	base, token, err := c.Reserves()
	if err != nil {
		return 0, err
	}
	if token.IsZero() {
		return 0, nil
	}
	p, err := base.Div(token)
	if err != nil {
		return 0, err
	}
	return p.Uint64()
}
