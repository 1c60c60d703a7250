// internal/sale/sale.go
package sale

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchcurve/internal/curve"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

// Metadata limits, in bytes.
const (
	MaxNameLength   = 32
	MaxTickerLength = 10
	MaxURILength    = 200
)

// Status is the lifecycle stage of a sale. Active -> Graduated only.
type Status uint8

const (
	StatusActive Status = iota
	StatusGraduated
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusGraduated:
		return "graduated"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Sale is the full state of one launched token. It is a plain value: every
// transition takes a copy and returns a new one, so a failed trade can never
// leave a half-applied record behind.
type Sale struct {
	Mint    solana.PublicKey
	Creator solana.PublicKey
	Name    string
	Ticker  string
	URI     string

	Curve       curve.Curve
	TotalSupply uint64

	// LiquidityFees accrues the liquidity share of trading fees. It is kept
	// apart from the curve reserves and migrates with them on graduation.
	LiquidityFees uint64

	// GraduationThreshold is in valuation units, see valuation.Rate.
	GraduationThreshold uint64

	Status   Status
	Migrated bool

	CreatedAt   int64
	GraduatedAt int64
}

// CreateParams describes a new sale. Curve must be freshly constructed with
// curve.NewLinear or curve.NewConstantProduct.
type CreateParams struct {
	Mint                solana.PublicKey
	Creator             solana.PublicKey
	Name                string
	Ticker              string
	URI                 string
	Curve               curve.Curve
	TotalSupply         uint64
	GraduationThreshold uint64
	CreatedAt           int64
}

// Create validates p and returns an active sale with empty reserves.
func Create(p CreateParams) (Sale, error) {
	if err := validateMetadata(p.Name, p.Ticker, p.URI); err != nil {
		return Sale{}, err
	}
	if p.Mint.IsZero() {
		return Sale{}, fmt.Errorf("%w: mint is required", ErrInvalidParams)
	}
	if p.TotalSupply == 0 {
		return Sale{}, fmt.Errorf("%w: total supply must be positive", ErrInvalidParams)
	}
	if p.GraduationThreshold == 0 {
		return Sale{}, fmt.Errorf("%w: graduation threshold must be positive", ErrInvalidParams)
	}
	if err := p.Curve.Validate(); err != nil {
		return Sale{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.Curve.Issued() != 0 || p.Curve.RealBaseReserve != 0 {
		return Sale{}, fmt.Errorf("%w: curve must start with empty reserves", ErrInvalidParams)
	}

	return Sale{
		Mint:                p.Mint,
		Creator:             p.Creator,
		Name:                p.Name,
		Ticker:              p.Ticker,
		URI:                 p.URI,
		Curve:               p.Curve,
		TotalSupply:         p.TotalSupply,
		GraduationThreshold: p.GraduationThreshold,
		Status:              StatusActive,
		CreatedAt:           p.CreatedAt,
	}, nil
}

func validateMetadata(name, ticker, uri string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidMetadata)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidMetadata, MaxNameLength)
	case ticker == "":
		return fmt.Errorf("%w: empty ticker", ErrInvalidMetadata)
	case len(ticker) > MaxTickerLength:
		return fmt.Errorf("%w: ticker longer than %d bytes", ErrInvalidMetadata, MaxTickerLength)
	case len(uri) > MaxURILength:
		return fmt.Errorf("%w: uri longer than %d bytes", ErrInvalidMetadata, MaxURILength)
	}
	return nil
}

// Validate checks the invariants that hold between any two transitions.
func (s Sale) Validate() error {
	if err := s.Curve.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if s.Curve.Issued() > s.TotalSupply {
		return fmt.Errorf("%w: issued %d exceeds total supply %d", ErrInvalidParams, s.Curve.Issued(), s.TotalSupply)
	}
	if s.Status > StatusGraduated {
		return fmt.Errorf("%w: unknown %s", ErrInvalidParams, s.Status)
	}
	if s.Migrated && s.Status != StatusGraduated {
		return fmt.Errorf("%w: migrated sale is not graduated", ErrInvalidParams)
	}
	return nil
}

// Active reports whether the sale still accepts trades.
func (s Sale) Active() bool {
	return s.Status == StatusActive
}

// Circulating is the number of tokens held outside the curve.
func (s Sale) Circulating() uint64 {
	return s.Curve.Issued()
}

// TokensRemaining is the unsold supply still owned by the curve.
func (s Sale) TokensRemaining() uint64 {
	if s.Migrated {
		return 0
	}
	return s.TotalSupply - s.Curve.Issued()
}

// CurrentPrice is the spot price floored to whole base units.
func (s Sale) CurrentPrice() (uint64, error) {
	return s.Curve.FloorPrice()
}

// MarketCap values the circulating supply at CurrentPrice.
func (s Sale) MarketCap(rate valuation.Rate) (uint64, error) {
	price, err := s.CurrentPrice()
	if err != nil {
		return 0, err
	}
	return valuation.MarketCap(price, s.Circulating(), rate)
}
