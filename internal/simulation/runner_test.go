package simulation

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchcurve/internal/config"
	"github.com/rovshanmuradov/launchcurve/internal/launchpad"
	"github.com/rovshanmuradov/launchcurve/internal/utils/logger"
)

func loadTestConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launchpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func TestRunnerGraduatesDemoSale(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"default constant product", ""},
		{"linear", "curve:\n  kind: linear\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journalPath := filepath.Join(t.TempDir(), "journal.csv")
			exportDir := t.TempDir()
			cfg := loadTestConfig(t, tt.body+"journal_path: "+journalPath+"\nexport_dir: "+exportDir+"\n")

			r := NewRunner(cfg, logger.Wrap(zaptest.NewLogger(t)))
			ctx := context.Background()
			require.NoError(t, r.Initialize(ctx))

			report, err := r.Run(ctx)
			require.NoError(t, err)
			require.NoError(t, r.Shutdown(ctx))

			assert.True(t, report.Graduated)
			assert.Zero(t, report.Rejected, "every quoted order should fill")
			assert.Positive(t, report.Trades)
			assert.LessOrEqual(t, report.Trades, cfg.Simulation.MaxTrades)
			assert.True(t, report.Final.Sale.Migrated)
			assert.False(t, report.Final.Pool.IsZero())
			assert.Equal(t, uint64(report.Trades), report.Stats.Trades)
			assert.Equal(t, uint64(1), report.Stats.Graduations)
			assert.Equal(t, uint64(1), report.Stats.Migrations)
			assert.FileExists(t, report.ExportPath)
			assert.Equal(t, exportDir, filepath.Dir(report.ExportPath))

			f, err := os.Open(journalPath)
			require.NoError(t, err)
			defer f.Close()
			rows, err := csv.NewReader(f).ReadAll()
			require.NoError(t, err)

			// header, sale.created, trades, sale.graduated, sale.migrated
			assert.Len(t, rows, 1+1+report.Trades+2)
			assert.Equal(t, "sale.migrated", rows[len(rows)-1][1])
		})
	}
}

func TestRunnerStopsAtTradeBudget(t *testing.T) {
	cfg := loadTestConfig(t, "simulation:\n  max_trades: 2\n")

	r := NewRunner(cfg, logger.Wrap(zaptest.NewLogger(t)))
	ctx := context.Background()
	require.NoError(t, r.Initialize(ctx))
	defer r.Shutdown(ctx)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Graduated)
	assert.Equal(t, 2, report.Trades)
	assert.False(t, report.Final.Sale.Migrated)
}

func TestNextOrderLimits(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"constant product", "{}\n"},
		{"linear", "curve:\n  kind: linear\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadTestConfig(t, tt.body)
			r := NewRunner(cfg, logger.Wrap(zaptest.NewLogger(t)))
			ctx := context.Background()
			require.NoError(t, r.Initialize(ctx))
			defer r.Shutdown(ctx)

			creator := solana.NewWallet().PublicKey()
			require.NoError(t, r.base.Fund(creator, cfg.CreationFee))
			cv, err := cfg.NewCurve()
			require.NoError(t, err)
			s, err := r.svc.CreateSale(ctx, launchpad.CreateSaleRequest{
				Mint:                solana.NewWallet().PublicKey(),
				Creator:             creator,
				Name:                "Limits",
				Ticker:              "LIM",
				Curve:               cv,
				TotalSupply:         cfg.TotalSupply,
				GraduationThreshold: cfg.GraduationThreshold,
			})
			require.NoError(t, err)

			order, err := r.nextOrder(ctx, s.Mint, solana.NewWallet().PublicKey())
			require.NoError(t, err)
			quote, err := r.svc.Quote(ctx, order)
			require.NoError(t, err, "the bounded order must still quote")

			if cv.InputIsBase() {
				assert.NotZero(t, order.Limit)
				assert.Less(t, order.Limit, quote.TokenAmount)
			} else {
				assert.Less(t, order.Limit, uint64(math.MaxUint64))
				assert.Greater(t, order.Limit, quote.CounterAmount)
			}
		})
	}
}

func TestRunnerRequiresInitialize(t *testing.T) {
	cfg := loadTestConfig(t, "{}\n")
	_, err := NewRunner(cfg, logger.Wrap(zaptest.NewLogger(t))).Run(context.Background())
	assert.Error(t, err)
}

func TestShutdownHandlerOrderAndErrors(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t))

	var order []string
	boom := errors.New("boom")
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return boom })
	sh.Add("third", func(context.Context) error { order = append(order, "third"); return nil })

	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"third", "second", "first"}, order)

	// hooks run once
	assert.NoError(t, sh.Shutdown(context.Background()))
}

func TestShutdownHandlerTimeout(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t))
	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error { <-release; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sh.Shutdown(ctx), context.DeadlineExceeded)
}
