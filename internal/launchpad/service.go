package launchpad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/events"
	"github.com/rovshanmuradov/launchcurve/internal/fees"
	"github.com/rovshanmuradov/launchcurve/internal/ledger"
	"github.com/rovshanmuradov/launchcurve/internal/storage"
	"github.com/rovshanmuradov/launchcurve/internal/utils/logger"
	"github.com/rovshanmuradov/launchcurve/internal/utils/metrics"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

// RateSource supplies the base-to-valuation rate used for market cap.
type RateSource interface {
	Rate(ctx context.Context) (valuation.Rate, error)
}

// Config holds platform-wide settings of the service.
type Config struct {
	ProgramID   solana.PublicKey
	Treasury    solana.PublicKey
	Schedule    fees.Schedule
	CreationFee uint64

	// Retries is the number of extra migration attempts after the first.
	Retries       int
	RetryInterval time.Duration
	Workers       int
}

// Deps are the collaborators of the service. Bus and Metrics are optional.
type Deps struct {
	Store    storage.SaleStore
	Base     ledger.BaseLedger
	Tokens   ledger.TokenLedger
	Migrator ledger.Migrator
	Rates    RateSource
	Bus      *events.Bus
	Metrics  *metrics.Collector
	Clock    func() time.Time
}

// Service runs sales on top of the pure engine in internal/sale. It owns
// locking, persistence, token and base movements, and event fan-out.
type Service struct {
	cfg      Config
	store    storage.SaleStore
	base     ledger.BaseLedger
	tokens   ledger.TokenLedger
	migrator ledger.Migrator
	rates    RateSource
	bus      *events.Bus
	metrics  *metrics.Collector
	now      func() time.Time
	logger   *logger.Logger
	locks    *keyedMutex
	stats    *counters
}

func New(cfg Config, deps Deps, log *logger.Logger) (*Service, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if cfg.ProgramID.IsZero() {
		return nil, errors.New("program id is required")
	}
	if cfg.Treasury.IsZero() {
		return nil, errors.New("treasury is required")
	}
	if deps.Store == nil || deps.Base == nil || deps.Tokens == nil || deps.Migrator == nil || deps.Rates == nil {
		return nil, errors.New("store, ledgers, migrator and rate source are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}

	collector := deps.Metrics
	if collector == nil {
		var err error
		if collector, err = metrics.NewCollector(prometheus.NewRegistry()); err != nil {
			return nil, fmt.Errorf("failed to create metrics collector: %w", err)
		}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.Wrap(zap.NewNop())
	}

	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		base:     deps.Base,
		tokens:   deps.Tokens,
		migrator: deps.Migrator,
		rates:    deps.Rates,
		bus:      deps.Bus,
		metrics:  collector,
		now:      clock,
		logger:   log,
		locks:    newKeyedMutex(),
		stats:    newCounters(),
	}, nil
}

// Vault returns the curve vault of mint under the configured program.
func (s *Service) Vault(mint solana.PublicKey) (solana.PublicKey, error) {
	return VaultAddress(s.cfg.ProgramID, mint)
}

func (s *Service) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}
