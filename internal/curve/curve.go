// internal/curve/curve.go
package curve

import (
	"fmt"
	"strings"

	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// Kind selects the pricing model of a curve. It is fixed at creation.
type Kind uint8

const (
	KindLinear Kind = iota
	KindConstantProduct
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindConstantProduct:
		return "constant_product"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind accepts the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return KindLinear, nil
	case "constant_product", "constant-product", "cp":
		return KindConstantProduct, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Curve is the tagged pricing state of a sale. Kind decides which of the
// parameter groups is meaningful; the other group stays zero.
type Curve struct {
	Kind Kind

	// Linear
	BasePrice  uint64
	Slope      uint64
	TokensSold uint64

	// ConstantProduct
	VirtualBaseReserve  uint64
	VirtualTokenReserve uint64
	RealTokenReserve    uint64

	// RealBaseReserve is base held by the curve for either model.
	RealBaseReserve uint64
}

// NewLinear returns an empty linear curve.
func NewLinear(basePrice, slope uint64) Curve {
	return Curve{Kind: KindLinear, BasePrice: basePrice, Slope: slope}
}

// NewConstantProduct returns an empty constant-product curve.
func NewConstantProduct(virtualBase, virtualToken uint64) Curve {
	return Curve{Kind: KindConstantProduct, VirtualBaseReserve: virtualBase, VirtualTokenReserve: virtualToken}
}

func (c Curve) linear() Linear {
	return Linear{BasePrice: c.BasePrice, Slope: c.Slope}
}

func (c Curve) constantProduct() ConstantProduct {
	return ConstantProduct{
		VirtualBaseReserve:  c.VirtualBaseReserve,
		VirtualTokenReserve: c.VirtualTokenReserve,
		RealBaseReserve:     c.RealBaseReserve,
		RealTokenReserve:    c.RealTokenReserve,
	}
}

// Validate checks the parameters and reserve bounds of the curve.
func (c Curve) Validate() error {
	switch c.Kind {
	case KindLinear:
		if c.VirtualBaseReserve != 0 || c.VirtualTokenReserve != 0 || c.RealTokenReserve != 0 {
			return fmt.Errorf("linear curve carries constant-product reserves")
		}
	case KindConstantProduct:
		if c.VirtualBaseReserve == 0 || c.VirtualTokenReserve == 0 {
			return fmt.Errorf("virtual reserves must be positive")
		}
		if c.RealTokenReserve > c.VirtualTokenReserve {
			return fmt.Errorf("real token reserve %d exceeds virtual token reserve %d",
				c.RealTokenReserve, c.VirtualTokenReserve)
		}
		if c.BasePrice != 0 || c.Slope != 0 || c.TokensSold != 0 {
			return fmt.Errorf("constant-product curve carries linear parameters")
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(c.Kind))
	}
	return nil
}

// InputIsBase reports whether a buy amount is denominated in base units
// (ConstantProduct) rather than tokens (Linear).
func (c Curve) InputIsBase() bool {
	return c.Kind == KindConstantProduct
}

// Issued returns the number of tokens the curve has put into circulation.
func (c Curve) Issued() uint64 {
	if c.Kind == KindConstantProduct {
		return c.RealTokenReserve
	}
	return c.TokensSold
}

// Product returns the invariant k of a constant-product curve.
func (c Curve) Product() (checked.U128, error) {
	if c.Kind != KindConstantProduct {
		return checked.U128{}, ErrWrongKind
	}
	return c.constantProduct().Product()
}

// Fill is the curve side of a trade, before any fee.
type Fill struct {
	Base   uint64
	Tokens uint64
	Next   Curve
}

// BuyTokens prices the purchase of n tokens on a linear curve.
func (c Curve) BuyTokens(n uint64) (Fill, error) {
	if c.Kind != KindLinear {
		return Fill{}, fmt.Errorf("%w: buy by token count on %s curve", ErrWrongKind, c.Kind)
	}
	cost, err := c.linear().Cost(c.TokensSold, n)
	if err != nil {
		return Fill{}, err
	}

	next := c
	if next.TokensSold, err = checked.Add(c.TokensSold, n); err != nil {
		return Fill{}, err
	}
	if next.RealBaseReserve, err = checked.Add(c.RealBaseReserve, cost); err != nil {
		return Fill{}, err
	}
	return Fill{Base: cost, Tokens: n, Next: next}, nil
}

// BuyWithBase swaps a post-fee base amount into a constant-product curve.
func (c Curve) BuyWithBase(x uint64) (Fill, error) {
	if c.Kind != KindConstantProduct {
		return Fill{}, fmt.Errorf("%w: buy by base amount on %s curve", ErrWrongKind, c.Kind)
	}
	out, err := c.constantProduct().TokensOut(x)
	if err != nil {
		return Fill{}, err
	}

	next := c
	if next.RealBaseReserve, err = checked.Add(c.RealBaseReserve, x); err != nil {
		return Fill{}, err
	}
	if next.RealTokenReserve, err = checked.Add(c.RealTokenReserve, out); err != nil {
		return Fill{}, err
	}
	if next.RealTokenReserve > next.VirtualTokenReserve {
		return Fill{}, ErrInsufficientLiquidity
	}
	return Fill{Base: x, Tokens: out, Next: next}, nil
}

// Sell returns the pre-fee base released for n tokens on either model.
func (c Curve) Sell(n uint64) (Fill, error) {
	var (
		out uint64
		err error
	)
	next := c

	switch c.Kind {
	case KindLinear:
		if out, err = c.linear().Refund(c.TokensSold, n); err != nil {
			return Fill{}, err
		}
		next.TokensSold = c.TokensSold - n
	case KindConstantProduct:
		if out, err = c.constantProduct().BaseOut(n); err != nil {
			return Fill{}, err
		}
		next.RealTokenReserve = c.RealTokenReserve - n
	default:
		return Fill{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(c.Kind))
	}

	// linear refunds are bounded by the escrow too
	if out > c.RealBaseReserve {
		return Fill{}, ErrInsufficientLiquidity
	}
	next.RealBaseReserve = c.RealBaseReserve - out
	return Fill{Base: out, Tokens: n, Next: next}, nil
}

// SpotPrice returns the current price as the ratio num/den base units per
// token. Linear prices are integral (den == 1). An exhausted constant-product
// token side yields a zero price.
func (c Curve) SpotPrice() (num, den checked.U128, err error) {
	switch c.Kind {
	case KindLinear:
		p, err := c.linear().PriceAt(c.TokensSold)
		if err != nil {
			return checked.U128{}, checked.U128{}, err
		}
		return checked.From64(p), checked.From64(1), nil
	case KindConstantProduct:
		base, token, err := c.constantProduct().Reserves()
		if err != nil {
			return checked.U128{}, checked.U128{}, err
		}
		if token.IsZero() {
			return checked.U128{}, checked.From64(1), nil
		}
		return base, token, nil
	default:
		return checked.U128{}, checked.U128{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(c.Kind))
	}
}

// FloorPrice is SpotPrice rounded down to whole base units.
func (c Curve) FloorPrice() (uint64, error) {
	num, den, err := c.SpotPrice()
	if err != nil {
		return 0, err
	}
	p, err := num.Div(den)
	if err != nil {
		return 0, err
	}
	return p.Uint64()
}
