package launchpad

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchcurve/internal/events"
	"github.com/rovshanmuradov/launchcurve/internal/ledger"
	"github.com/rovshanmuradov/launchcurve/internal/sale"
	"github.com/rovshanmuradov/launchcurve/internal/utils/logger"
)

// TradeOrder is a trader's request against one sale. Amount and Limit mean
// what they mean in sale.TradeRequest.
type TradeOrder struct {
	Mint      solana.PublicKey
	Trader    solana.PublicKey
	Direction sale.Direction
	Amount    uint64
	Limit     uint64
}

// Buy executes a buy order for trader.
func (s *Service) Buy(ctx context.Context, mint, trader solana.PublicKey, amount, limit uint64) (sale.TradeOutcome, error) {
	return s.Execute(ctx, TradeOrder{Mint: mint, Trader: trader, Direction: sale.DirectionBuy, Amount: amount, Limit: limit})
}

// Sell executes a sell order for trader.
func (s *Service) Sell(ctx context.Context, mint, trader solana.PublicKey, amount, limit uint64) (sale.TradeOutcome, error) {
	return s.Execute(ctx, TradeOrder{Mint: mint, Trader: trader, Direction: sale.DirectionSell, Amount: amount, Limit: limit})
}

// Quote prices an order against the current state without moving funds or
// saving anything.
func (s *Service) Quote(ctx context.Context, order TradeOrder) (sale.TradeOutcome, error) {
	current, err := s.store.Get(ctx, order.Mint)
	if err != nil {
		return sale.TradeOutcome{}, err
	}
	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return sale.TradeOutcome{}, fmt.Errorf("failed to get valuation rate: %w", err)
	}
	return sale.Execute(current, s.request(order), s.cfg.Schedule, rate)
}

func (s *Service) request(order TradeOrder) sale.TradeRequest {
	return sale.TradeRequest{
		Direction: order.Direction,
		Amount:    order.Amount,
		Limit:     order.Limit,
		At:        s.now().Unix(),
	}
}

// Execute runs one order: lock, load, price, move funds, save, publish.
// The stored sale changes only if every transfer went through.
func (s *Service) Execute(ctx context.Context, order TradeOrder) (sale.TradeOutcome, error) {
	start := s.now()
	direction := order.Direction.String()

	if order.Trader.IsZero() {
		return sale.TradeOutcome{}, fmt.Errorf("%w: trader is required", sale.ErrInvalidParams)
	}

	unlock := s.locks.Lock(order.Mint)
	defer unlock()

	current, err := s.store.Get(ctx, order.Mint)
	if err != nil {
		return sale.TradeOutcome{}, err
	}
	log := s.logger.WithSale(order.Mint.String(), current.Curve.Kind.String()).With(
		zap.String("trader", order.Trader.String()),
		zap.String("direction", direction),
		zap.Uint64("amount", order.Amount),
		zap.Uint64("limit", order.Limit))

	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return sale.TradeOutcome{}, fmt.Errorf("failed to get valuation rate: %w", err)
	}

	out, err := sale.Execute(current, s.request(order), s.cfg.Schedule, rate)
	if err != nil {
		s.reject(log, order, err)
		return sale.TradeOutcome{}, err
	}

	vault, err := s.Vault(order.Mint)
	if err != nil {
		return sale.TradeOutcome{}, err
	}
	plan := s.settlementPlan(order, vault, out)
	if err := plan.run(ctx); err != nil {
		s.reject(log, order, err)
		return sale.TradeOutcome{}, fmt.Errorf("settlement failed: %w", err)
	}

	if err := s.store.Update(ctx, out.Sale); err != nil {
		if rbErr := plan.rollback(ctx); rbErr != nil {
			log.Error("Rollback after failed save", zap.Error(rbErr))
			err = errors.Join(err, rbErr)
		}
		log.Error("Failed to save sale", zap.String("status", logger.TradeFailed), zap.Error(err))
		return sale.TradeOutcome{}, fmt.Errorf("failed to save sale: %w", err)
	}

	volume := out.CounterAmount
	if order.Direction == sale.DirectionSell {
		volume += out.TotalFee()
	}
	s.stats.trades.Inc()
	s.stats.volume.Add(volume)
	s.stats.protocolFees.Add(out.ProtocolFee)
	s.metrics.RecordTrade(direction, current.Curve.Kind.String(), volume, out.ProtocolFee, out.LiquidityFee, s.now().Sub(start))

	log.Info("Trade executed",
		zap.String("status", logger.TradeExecuted),
		zap.Uint64("tokens", out.TokenAmount),
		zap.Uint64("base", out.CounterAmount),
		zap.Uint64("protocol_fee", out.ProtocolFee),
		zap.Uint64("liquidity_fee", out.LiquidityFee),
		zap.Uint64("market_cap", out.MarketCap))

	price, _ := out.Sale.CurrentPrice()
	s.publish(events.TradeExecutedEvent{
		BaseEvent:     events.NewBase(events.TradeExecuted, s.now()),
		Mint:          order.Mint.String(),
		Trader:        order.Trader.String(),
		Direction:     direction,
		TokenAmount:   out.TokenAmount,
		CounterAmount: out.CounterAmount,
		ProtocolFee:   out.ProtocolFee,
		LiquidityFee:  out.LiquidityFee,
		Price:         price,
		MarketCap:     out.MarketCap,
	})

	if out.GraduatedThisTrade {
		s.stats.graduations.Inc()
		s.metrics.RecordGraduation()
		log.Info("Sale graduated",
			zap.Uint64("market_cap", out.MarketCap),
			zap.Uint64("threshold", out.Sale.GraduationThreshold))
		s.publish(events.SaleGraduatedEvent{
			BaseEvent: events.NewBase(events.SaleGraduated, s.now()),
			Mint:      order.Mint.String(),
			MarketCap: out.MarketCap,
			Threshold: out.Sale.GraduationThreshold,
		})
	}
	return out, nil
}

// settlementPlan lists the ledger movements of a priced trade. The
// protocol fee always leaves the vault for the treasury; the liquidity fee
// stays in the vault.
func (s *Service) settlementPlan(order TradeOrder, vault solana.PublicKey, out sale.TradeOutcome) *transferPlan {
	base := func(from, to solana.PublicKey, amount uint64) func(context.Context) error {
		return func(ctx context.Context) error { return s.base.Transfer(ctx, from, to, amount) }
	}
	tokens := func(from, to solana.PublicKey, amount uint64) func(context.Context) error {
		return func(ctx context.Context) error { return s.tokens.Transfer(ctx, order.Mint, from, to, amount) }
	}

	plan := &transferPlan{}
	switch order.Direction {
	case sale.DirectionBuy:
		plan.add("base to vault", base(order.Trader, vault, out.CounterAmount), base(vault, order.Trader, out.CounterAmount))
		plan.add("protocol fee", base(vault, s.cfg.Treasury, out.ProtocolFee), base(s.cfg.Treasury, vault, out.ProtocolFee))
		plan.add("tokens to trader", tokens(vault, order.Trader, out.TokenAmount), tokens(order.Trader, vault, out.TokenAmount))
	case sale.DirectionSell:
		plan.add("tokens to vault", tokens(order.Trader, vault, out.TokenAmount), tokens(vault, order.Trader, out.TokenAmount))
		plan.add("base to trader", base(vault, order.Trader, out.CounterAmount), base(order.Trader, vault, out.CounterAmount))
		plan.add("protocol fee", base(vault, s.cfg.Treasury, out.ProtocolFee), base(s.cfg.Treasury, vault, out.ProtocolFee))
	}
	return plan
}

func (s *Service) reject(log *zap.Logger, order TradeOrder, err error) {
	reason := rejectReason(err)
	s.metrics.RecordRejected(order.Direction.String(), reason)
	log.Warn("Trade rejected",
		zap.String("status", logger.TradeRejected),
		zap.String("reason", reason),
		zap.Error(err))

	s.publish(events.TradeRejectedEvent{
		BaseEvent: events.NewBase(events.TradeRejected, s.now()),
		Mint:      order.Mint.String(),
		Trader:    order.Trader.String(),
		Direction: order.Direction.String(),
		Amount:    order.Amount,
		Reason:    reason,
	})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, sale.ErrSlippageExceeded):
		return "slippage_exceeded"
	case errors.Is(err, sale.ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, sale.ErrAlreadyGraduated):
		return "already_graduated"
	case errors.Is(err, sale.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, sale.ErrMathOverflow):
		return "math_overflow"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "other"
	}
}

// BatchResult pairs an order with its outcome.
type BatchResult struct {
	Order   TradeOrder
	Outcome sale.TradeOutcome
	Err     error
}

// BatchTrade executes orders concurrently across sales and in submission
// order within a sale. A failed order does not stop the others; the
// returned error is only set when ctx ends the batch early.
func (s *Service) BatchTrade(ctx context.Context, orders []TradeOrder) ([]BatchResult, error) {
	results := make([]BatchResult, len(orders))

	groups := make(map[solana.PublicKey][]int)
	var mints []solana.PublicKey
	for i, order := range orders {
		results[i].Order = order
		if _, ok := groups[order.Mint]; !ok {
			mints = append(mints, order.Mint)
		}
		groups[order.Mint] = append(groups[order.Mint], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, mint := range mints {
		idx := groups[mint]
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Outcome, results[i].Err = s.Execute(gctx, orders[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("Batch finished",
		zap.Int("orders", len(orders)),
		zap.Int("sales", len(mints)))
	return results, ctx.Err()
}
