// cmd/launchpad/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/config"
	"github.com/rovshanmuradov/launchcurve/internal/simulation"
	"github.com/rovshanmuradov/launchcurve/internal/utils/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, log))
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) int {
	runner := simulation.NewRunner(cfg, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := runner.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	if err := runner.Initialize(ctx); err != nil {
		log.Error("Failed to initialize launchpad", zap.Error(err))
		return 1
	}

	report, err := runner.Run(ctx)
	if err != nil {
		log.Error("Simulation failed", zap.Error(err))
		return 1
	}

	log.Info("Simulation finished",
		zap.String("mint", report.Mint.String()),
		zap.Int("trades", report.Trades),
		zap.Int("rejected", report.Rejected),
		zap.Bool("graduated", report.Graduated),
		zap.String("pool", report.Final.Pool.String()),
		zap.Uint64("migrated_base", report.Final.Migration.Base),
		zap.Uint64("migrated_tokens", report.Final.Migration.Tokens),
		zap.Uint64("volume", report.Stats.Volume),
		zap.Uint64("protocol_fees", report.Stats.ProtocolFees))
	return 0
}
