// internal/sale/trade.go
package sale

import (
	"fmt"

	"github.com/rovshanmuradov/launchcurve/internal/fees"
	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

// Direction of a trade from the trader's side.
type Direction uint8

const (
	DirectionBuy Direction = iota
	DirectionSell
)

func (d Direction) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

// TradeRequest is one trade against a sale.
//
// Amount is a token count, except for a buy on a constant-product curve
// where it is the gross base amount to spend. Limit is the slippage bound:
// the maximum gross base paid for a linear buy, the minimum tokens received
// for a constant-product buy and the minimum net base received for a sell.
// At is the host timestamp stamped on the sale if the trade graduates it.
type TradeRequest struct {
	Direction Direction
	Amount    uint64
	Limit     uint64
	At        int64
}

// TradeOutcome is the result of a successful trade. CounterAmount is base
// paid by the trader (fees included) on a buy and base received (fees
// deducted) on a sell.
type TradeOutcome struct {
	Direction          Direction
	CounterAmount      uint64
	TokenAmount        uint64
	ProtocolFee        uint64
	LiquidityFee       uint64
	MarketCap          uint64
	Sale               Sale
	GraduatedThisTrade bool
}

// TotalFee is the sum of both fee shares.
func (o TradeOutcome) TotalFee() uint64 {
	return o.ProtocolFee + o.LiquidityFee
}

// Execute applies req to s. The input is never modified; on error the
// returned outcome is zero.
func Execute(s Sale, req TradeRequest, schedule fees.Schedule, rate valuation.Rate) (TradeOutcome, error) {
	switch req.Direction {
	case DirectionBuy:
		out, err := Buy(s, req.Amount, req.Limit, schedule, rate)
		if err != nil {
			return TradeOutcome{}, err
		}
		if out.GraduatedThisTrade {
			out.Sale.GraduatedAt = req.At
		}
		return out, nil
	case DirectionSell:
		return Sell(s, req.Amount, req.Limit, schedule)
	default:
		return TradeOutcome{}, fmt.Errorf("%w: unknown direction %d", ErrInvalidAmount, req.Direction)
	}
}

// Buy executes a buy and graduates the sale in the same transition
// when the post-trade market cap reaches the threshold.
func Buy(s Sale, amount, limit uint64, schedule fees.Schedule, rate valuation.Rate) (TradeOutcome, error) {
	if err := precheck(s, amount, schedule); err != nil {
		return TradeOutcome{}, err
	}
	if err := rate.Validate(); err != nil {
		return TradeOutcome{}, err
	}

	next := s
	out := TradeOutcome{Direction: DirectionBuy}
	var split fees.Split

	if s.Curve.InputIsBase() {
		// fee comes off the input before it reaches the curve
		var err error
		if split, err = schedule.Split(amount); err != nil {
			return TradeOutcome{}, err
		}
		net, err := split.Net(amount)
		if err != nil {
			return TradeOutcome{}, err
		}
		if net == 0 {
			return TradeOutcome{}, fmt.Errorf("%w: nothing left after fees", ErrInvalidAmount)
		}

		fill, err := s.Curve.BuyWithBase(net)
		if err != nil {
			return TradeOutcome{}, err
		}
		if fill.Next.Issued() > s.TotalSupply {
			return TradeOutcome{}, ErrInsufficientLiquidity
		}
		if fill.Tokens < limit {
			return TradeOutcome{}, &SlippageExceededError{Direction: DirectionBuy, Limit: limit, Actual: fill.Tokens}
		}

		next.Curve = fill.Next
		out.CounterAmount = amount
		out.TokenAmount = fill.Tokens
	} else {
		// token-denominated buy: the fee is charged on top of the curve cost
		if amount > s.TotalSupply-s.Curve.Issued() {
			return TradeOutcome{}, ErrInsufficientLiquidity
		}
		fill, err := s.Curve.BuyTokens(amount)
		if err != nil {
			return TradeOutcome{}, err
		}
		if split, err = schedule.Split(fill.Base); err != nil {
			return TradeOutcome{}, err
		}
		gross, err := split.Gross(fill.Base)
		if err != nil {
			return TradeOutcome{}, err
		}
		if gross > limit {
			return TradeOutcome{}, &SlippageExceededError{Direction: DirectionBuy, Limit: limit, Actual: gross}
		}

		next.Curve = fill.Next
		out.CounterAmount = gross
		out.TokenAmount = amount
	}

	if err := settleFees(&next, &out, split); err != nil {
		return TradeOutcome{}, err
	}
	if err := next.Validate(); err != nil {
		return TradeOutcome{}, err
	}

	mcap, err := next.MarketCap(rate)
	if err != nil {
		return TradeOutcome{}, err
	}
	out.MarketCap = mcap
	if valuation.Crossed(mcap, next.GraduationThreshold, next.Active()) {
		next.Status = StatusGraduated
		out.GraduatedThisTrade = true
	}

	out.Sale = next
	return out, nil
}

// Sell returns amount tokens to the curve. The fee is deducted from the
// curve output. Selling never graduates a sale.
func Sell(s Sale, amount, limit uint64, schedule fees.Schedule) (TradeOutcome, error) {
	if err := precheck(s, amount, schedule); err != nil {
		return TradeOutcome{}, err
	}

	fill, err := s.Curve.Sell(amount)
	if err != nil {
		return TradeOutcome{}, err
	}
	split, err := schedule.Split(fill.Base)
	if err != nil {
		return TradeOutcome{}, err
	}
	net, err := split.Net(fill.Base)
	if err != nil {
		return TradeOutcome{}, err
	}
	if net < limit {
		return TradeOutcome{}, &SlippageExceededError{Direction: DirectionSell, Limit: limit, Actual: net}
	}

	next := s
	next.Curve = fill.Next
	out := TradeOutcome{
		Direction:     DirectionSell,
		CounterAmount: net,
		TokenAmount:   amount,
	}
	if err := settleFees(&next, &out, split); err != nil {
		return TradeOutcome{}, err
	}
	if err := next.Validate(); err != nil {
		return TradeOutcome{}, err
	}

	out.Sale = next
	return out, nil
}

func precheck(s Sale, amount uint64, schedule fees.Schedule) error {
	if s.Status == StatusGraduated {
		return ErrAlreadyGraduated
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	return s.Validate()
}

func settleFees(next *Sale, out *TradeOutcome, split fees.Split) error {
	if split.Protocol+split.Liquidity != split.Total {
		return fmt.Errorf("%w: fee split %d+%d != %d", ErrMathOverflow, split.Protocol, split.Liquidity, split.Total)
	}
	vault, err := checked.Add(next.LiquidityFees, split.Liquidity)
	if err != nil {
		return err
	}
	next.LiquidityFees = vault
	out.ProtocolFee = split.Protocol
	out.LiquidityFee = split.Liquidity
	return nil
}
