package launchpad

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/curve"
	"github.com/rovshanmuradov/launchcurve/internal/events"
	"github.com/rovshanmuradov/launchcurve/internal/sale"
	"github.com/rovshanmuradov/launchcurve/internal/storage"
)

// CreateSaleRequest describes a token launch.
type CreateSaleRequest struct {
	Mint                solana.PublicKey
	Creator             solana.PublicKey
	Name                string
	Ticker              string
	URI                 string
	Curve               curve.Curve
	TotalSupply         uint64
	GraduationThreshold uint64
}

// CreateSale charges the creation fee, mints the full supply into the
// curve vault and persists the new sale. Any failure leaves balances and
// the store as they were.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (sale.Sale, error) {
	log := s.logger.WithSale(req.Mint.String(), req.Curve.Kind.String())

	if req.Creator.IsZero() {
		return sale.Sale{}, fmt.Errorf("%w: creator is required", sale.ErrInvalidParams)
	}
	created, err := sale.Create(sale.CreateParams{
		Mint:                req.Mint,
		Creator:             req.Creator,
		Name:                req.Name,
		Ticker:              req.Ticker,
		URI:                 req.URI,
		Curve:               req.Curve,
		TotalSupply:         req.TotalSupply,
		GraduationThreshold: req.GraduationThreshold,
		CreatedAt:           s.now().Unix(),
	})
	if err != nil {
		return sale.Sale{}, err
	}

	unlock := s.locks.Lock(req.Mint)
	defer unlock()

	if _, err := s.store.Get(ctx, req.Mint); err == nil {
		return sale.Sale{}, fmt.Errorf("sale %s: %w", req.Mint, storage.ErrDuplicateKey)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return sale.Sale{}, fmt.Errorf("failed to check existing sale: %w", err)
	}

	vault, err := s.Vault(req.Mint)
	if err != nil {
		return sale.Sale{}, err
	}

	var plan transferPlan
	if s.cfg.CreationFee > 0 {
		plan.add("creation fee",
			func(ctx context.Context) error {
				return s.base.Transfer(ctx, req.Creator, s.cfg.Treasury, s.cfg.CreationFee)
			},
			func(ctx context.Context) error {
				return s.base.Transfer(ctx, s.cfg.Treasury, req.Creator, s.cfg.CreationFee)
			})
	}
	plan.add("mint supply",
		func(ctx context.Context) error {
			return s.tokens.MintTo(ctx, req.Mint, vault, req.TotalSupply)
		},
		func(ctx context.Context) error {
			return s.tokens.Burn(ctx, req.Mint, vault, req.TotalSupply)
		})

	if err := plan.run(ctx); err != nil {
		log.Warn("Sale creation rejected", zap.Error(err))
		return sale.Sale{}, fmt.Errorf("failed to fund sale: %w", err)
	}

	if err := s.store.Insert(ctx, created); err != nil {
		if rbErr := plan.rollback(ctx); rbErr != nil {
			log.Error("Rollback after failed insert", zap.Error(rbErr))
			err = errors.Join(err, rbErr)
		}
		return sale.Sale{}, fmt.Errorf("failed to store sale: %w", err)
	}

	s.stats.tokensCreated.Inc()
	s.metrics.RecordSaleCreated(created.Curve.Kind.String())

	log.Info("Sale created",
		zap.String("ticker", created.Ticker),
		zap.String("creator", created.Creator.String()),
		zap.String("vault", vault.String()),
		zap.Uint64("total_supply", created.TotalSupply),
		zap.Uint64("creation_fee", s.cfg.CreationFee))

	s.publish(events.SaleCreatedEvent{
		BaseEvent:   events.NewBase(events.SaleCreated, s.now()),
		Mint:        created.Mint.String(),
		Creator:     created.Creator.String(),
		Ticker:      created.Ticker,
		Curve:       created.Curve.Kind.String(),
		TotalSupply: created.TotalSupply,
		CreationFee: s.cfg.CreationFee,
	})
	return created, nil
}

// Sale loads the current state of a sale.
func (s *Service) Sale(ctx context.Context, mint solana.PublicKey) (sale.Sale, error) {
	return s.store.Get(ctx, mint)
}

// Sales lists every sale known to the store.
func (s *Service) Sales(ctx context.Context) ([]sale.Sale, error) {
	return s.store.List(ctx)
}
