package launchpad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/events"
	"github.com/rovshanmuradov/launchcurve/internal/ledger"
	"github.com/rovshanmuradov/launchcurve/internal/sale"
)

// FinalizeResult reports what Finalize handed to the external pool.
type FinalizeResult struct {
	Sale      sale.Sale
	Migration sale.Migration
	Pool      solana.PublicKey
	// AlreadyMigrated is set when the sale was finalized by an earlier call.
	AlreadyMigrated bool
}

// Finalize migrates the reserves of a graduated sale into its pool. The
// migrator is retried with exponential backoff; the sale is saved as
// migrated only after the pool accepted the reserves.
func (s *Service) Finalize(ctx context.Context, mint solana.PublicKey) (FinalizeResult, error) {
	unlock := s.locks.Lock(mint)
	defer unlock()

	current, err := s.store.Get(ctx, mint)
	if err != nil {
		return FinalizeResult{}, err
	}
	log := s.logger.WithSale(mint.String(), current.Curve.Kind.String())

	next, migration, err := sale.FinalizeGraduation(current)
	if err != nil {
		return FinalizeResult{}, err
	}
	if current.Migrated {
		log.Debug("Sale already migrated")
		return FinalizeResult{Sale: current, AlreadyMigrated: true}, nil
	}

	vault, err := s.Vault(mint)
	if err != nil {
		return FinalizeResult{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInterval
	policy.MaxInterval = s.cfg.RetryInterval * 10

	notify := func(err error, wait time.Duration) {
		s.metrics.RecordMigrationRetry()
		log.Warn("Migration attempt failed, retrying", zap.Error(err), zap.Duration("backoff", wait))
	}

	operation := func() (solana.PublicKey, error) {
		pool, err := s.migrator.Migrate(ctx, ledger.PoolMigration{
			Mint:   mint,
			Vault:  vault,
			Base:   migration.Base,
			Tokens: migration.Tokens,
		})
		if errors.Is(err, ledger.ErrInsufficientBalance) || errors.Is(err, ledger.ErrZeroAccount) {
			return solana.PublicKey{}, backoff.Permanent(err)
		}
		return pool, err
	}

	pool, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.cfg.Retries+1)),
		backoff.WithNotify(notify))
	if err != nil {
		s.metrics.RecordMigration(false)
		log.Error("Migration failed", zap.Error(err))
		return FinalizeResult{}, fmt.Errorf("failed to migrate %s: %w", mint, err)
	}

	if err := s.store.Update(ctx, next); err != nil {
		// the migrator is idempotent per mint, a later Finalize completes the save
		log.Error("Failed to save migrated sale", zap.String("pool", pool.String()), zap.Error(err))
		return FinalizeResult{}, fmt.Errorf("failed to save migrated sale: %w", err)
	}

	s.stats.migrations.Inc()
	s.metrics.RecordMigration(true)
	log.Info("Sale migrated",
		zap.String("pool", pool.String()),
		zap.Uint64("base", migration.Base),
		zap.Uint64("tokens", migration.Tokens))

	s.publish(events.SaleMigratedEvent{
		BaseEvent: events.NewBase(events.SaleMigrated, s.now()),
		Mint:      mint.String(),
		Base:      migration.Base,
		Tokens:    migration.Tokens,
		Pool:      pool.String(),
	})

	return FinalizeResult{Sale: next, Migration: migration, Pool: pool}, nil
}
