// internal/simulation/runner.go
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/config"
	"github.com/rovshanmuradov/launchcurve/internal/events"
	"github.com/rovshanmuradov/launchcurve/internal/export"
	"github.com/rovshanmuradov/launchcurve/internal/fees"
	"github.com/rovshanmuradov/launchcurve/internal/journal"
	"github.com/rovshanmuradov/launchcurve/internal/launchpad"
	ledgermem "github.com/rovshanmuradov/launchcurve/internal/ledger/memory"
	"github.com/rovshanmuradov/launchcurve/internal/sale"
	"github.com/rovshanmuradov/launchcurve/internal/storage"
	storemem "github.com/rovshanmuradov/launchcurve/internal/storage/memory"
	"github.com/rovshanmuradov/launchcurve/internal/storage/postgres"
	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
	"github.com/rovshanmuradov/launchcurve/internal/utils/logger"
	"github.com/rovshanmuradov/launchcurve/internal/utils/metrics"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

// Runner wires a launchpad service from config and drives one demo sale
// from creation through graduation and migration.
type Runner struct {
	cfg      *config.Config
	logger   *logger.Logger
	shutdown *ShutdownHandler

	svc      *launchpad.Service
	base     *ledgermem.BaseLedger
	tokens   *ledgermem.TokenLedger
	registry *prometheus.Registry
}

// Report summarizes a finished run.
type Report struct {
	Mint      solana.PublicKey
	Trades    int
	Rejected  int
	Graduated bool
	Final     launchpad.FinalizeResult
	Stats     launchpad.Stats

	// ExportPath is the sales snapshot, when export_dir is set.
	ExportPath string
}

func NewRunner(cfg *config.Config, log *logger.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		logger:   log,
		shutdown: NewShutdownHandler(log.Named("shutdown")),
		registry: prometheus.NewRegistry(),
	}
}

// Initialize builds storage, ledgers, event plumbing and the service.
func (r *Runner) Initialize(ctx context.Context) error {
	schedule, err := r.cfg.Schedule()
	if err != nil {
		return err
	}
	program, err := r.cfg.ProgramKey()
	if err != nil {
		return err
	}
	treasury, err := r.cfg.TreasuryKey()
	if err != nil {
		return err
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	collector, err := metrics.NewCollector(r.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if r.cfg.MetricsAddr != "" {
		r.serveMetrics()
	}

	bus := events.NewBus(r.logger.Logger, 1024)
	if r.cfg.JournalPath != "" {
		j, err := journal.Open(r.cfg.JournalPath, time.Second, r.logger.Logger)
		if err != nil {
			return err
		}
		j.Attach(bus)
		r.shutdown.AddFunc("journal", j.Close)
	}
	// closed before the journal so queued events still reach it
	r.shutdown.Add("event bus", bus.Shutdown)

	r.base = ledgermem.NewBaseLedger()
	r.tokens = ledgermem.NewTokenLedger()

	r.svc, err = launchpad.New(launchpad.Config{
		ProgramID:   program,
		Treasury:    treasury,
		Schedule:    schedule,
		CreationFee: r.cfg.CreationFee,
		Retries:     r.cfg.Retries,
		Workers:     r.cfg.Workers,
	}, launchpad.Deps{
		Store:    store,
		Base:     r.base,
		Tokens:   r.tokens,
		Migrator: ledgermem.NewMigrator(r.base, r.tokens, program),
		Rates:    valuation.NewStaticSource(r.cfg.ValuationRate()),
		Bus:      bus,
		Metrics:  collector,
	}, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	r.logger.Info("Launchpad initialized",
		zap.String("program_id", program.String()),
		zap.String("treasury", treasury.String()),
		zap.Uint16("total_fee_bps", schedule.TotalFeeBps),
		zap.Uint16("protocol_fee_bps", schedule.ProtocolFeeBps))
	return nil
}

func (r *Runner) openStore(ctx context.Context) (storage.SaleStore, error) {
	if r.cfg.PostgresURL == "" {
		return storemem.NewSaleStore(), nil
	}

	pool, err := postgres.NewPool(ctx, r.cfg.PostgresURL, r.logger.Named("pgx"))
	if err != nil {
		return nil, err
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	r.shutdown.AddFunc("postgres", func() error {
		pool.Close()
		return nil
	})
	r.logger.Info("Using postgres sale store")
	return postgres.NewSaleStore(pool), nil
}

func (r *Runner) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	r.shutdown.Add("metrics server", srv.Shutdown)
	r.logger.Info("Serving metrics", zap.String("addr", r.cfg.MetricsAddr))
}

// Run creates the demo sale and buys with rotating traders until it
// graduates or the trade budget runs out, then finalizes.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if r.svc == nil {
		return Report{}, errors.New("runner is not initialized")
	}
	sim := r.cfg.Simulation
	end := r.logger.TrackPerformance("simulation")
	defer end()

	cv, err := r.cfg.NewCurve()
	if err != nil {
		return Report{}, err
	}

	creator := solana.NewWallet().PublicKey()
	if err := r.base.Fund(creator, r.cfg.CreationFee); err != nil {
		return Report{}, err
	}

	s, err := r.svc.CreateSale(ctx, launchpad.CreateSaleRequest{
		Mint:                solana.NewWallet().PublicKey(),
		Creator:             creator,
		Name:                sim.Name,
		Ticker:              sim.Ticker,
		URI:                 sim.URI,
		Curve:               cv,
		TotalSupply:         r.cfg.TotalSupply,
		GraduationThreshold: r.cfg.GraduationThreshold,
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to create demo sale: %w", err)
	}
	report := Report{Mint: s.Mint}

	funding, err := checked.Mul(sim.BuyAmount, uint64(sim.MaxTrades+1))
	if err != nil {
		funding = math.MaxUint64
	}
	traders := make([]solana.PublicKey, sim.Traders)
	for i := range traders {
		traders[i] = solana.NewWallet().PublicKey()
		if err := r.base.Fund(traders[i], funding); err != nil {
			return report, err
		}
	}

	for i := 0; i < sim.MaxTrades && !report.Graduated; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		order, err := r.nextOrder(ctx, s.Mint, traders[i%len(traders)])
		if err != nil {
			return report, err
		}
		out, err := r.svc.Execute(ctx, order)
		if err != nil {
			report.Rejected++
			if errors.Is(err, sale.ErrAlreadyGraduated) {
				report.Graduated = true
			}
			continue
		}
		report.Trades++
		report.Graduated = out.GraduatedThisTrade
	}

	if report.Graduated {
		if report.Final, err = r.svc.Finalize(ctx, s.Mint); err != nil {
			return report, err
		}
	} else {
		r.logger.Warn("Trade budget exhausted before graduation", zap.Int("max_trades", sim.MaxTrades))
	}

	report.Stats = r.svc.Stats()

	if r.cfg.ExportDir != "" {
		if report.ExportPath, err = r.exportSales(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *Runner) exportSales(ctx context.Context) (string, error) {
	format, err := export.ParseFormat(r.cfg.ExportFormat)
	if err != nil {
		return "", err
	}
	sales, err := r.svc.Sales(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list sales: %w", err)
	}
	return export.NewSaleExporter(r.logger.Named("export")).Export(sales, export.Options{
		Format:    format,
		OutputDir: r.cfg.ExportDir,
		Rate:      r.cfg.ValuationRate(),
	})
}

// nextOrder sizes a buy worth about BuyAmount base units and bounds it by
// the configured slippage around a fresh quote.
func (r *Runner) nextOrder(ctx context.Context, mint, trader solana.PublicKey) (launchpad.TradeOrder, error) {
	sim := r.cfg.Simulation
	order := launchpad.TradeOrder{
		Mint:      mint,
		Trader:    trader,
		Direction: sale.DirectionBuy,
		Amount:    sim.BuyAmount,
	}

	current, err := r.svc.Sale(ctx, mint)
	if err != nil {
		return order, err
	}
	if !current.Curve.InputIsBase() {
		price, err := current.CurrentPrice()
		if err != nil {
			return order, err
		}
		order.Amount = max(sim.BuyAmount/max(price, 1), 1)
		if remaining := current.TokensRemaining(); order.Amount > remaining {
			order.Amount = max(remaining, 1)
		}
	}

	// quote unbounded: max gross for linear, min tokens out for constant product
	order.Limit = math.MaxUint64
	if current.Curve.InputIsBase() {
		order.Limit = 0
	}
	quote, err := r.svc.Quote(ctx, order)
	if err != nil {
		// let Execute report the rejection
		return order, nil
	}
	if !current.Curve.InputIsBase() {
		if limit, err := checked.MulDiv(quote.CounterAmount, uint64(fees.MaxBps+sim.SlippageBps), fees.MaxBps); err == nil {
			order.Limit = limit
		}
	} else {
		order.Limit, _ = checked.MulDiv(quote.TokenAmount, uint64(fees.MaxBps-sim.SlippageBps), fees.MaxBps)
	}
	return order, nil
}

// Shutdown closes everything Initialize opened.
func (r *Runner) Shutdown(ctx context.Context) error {
	err := r.shutdown.Shutdown(ctx)
	if syncErr := r.logger.Sync(); syncErr != nil {
		err = errors.Join(err, syncErr)
	}
	return err
}
