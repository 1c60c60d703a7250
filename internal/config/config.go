// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchcurve/internal/curve"
	"github.com/rovshanmuradov/launchcurve/internal/fees"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

type FeesConfig struct {
	TotalFeeBps    uint16 `mapstructure:"total_fee_bps"`
	ProtocolFeeBps uint16 `mapstructure:"protocol_fee_bps"`
}

type CurveConfig struct {
	Kind                string `mapstructure:"kind"`
	BasePrice           uint64 `mapstructure:"base_price"`
	Slope               uint64 `mapstructure:"slope"`
	VirtualBaseReserve  uint64 `mapstructure:"virtual_base_reserve"`
	VirtualTokenReserve uint64 `mapstructure:"virtual_token_reserve"`
}

// RateConfig converts base units into valuation units: value = base * price / scale.
type RateConfig struct {
	Price uint64 `mapstructure:"price"`
	Scale uint64 `mapstructure:"scale"`
}

// SimulationConfig drives the demo sale run by cmd/launchpad.
type SimulationConfig struct {
	Name      string `mapstructure:"name"`
	Ticker    string `mapstructure:"ticker"`
	URI       string `mapstructure:"uri"`
	BuyAmount uint64 `mapstructure:"buy_amount"`
	MaxTrades int    `mapstructure:"max_trades"`
	Traders   int    `mapstructure:"traders"`

	// SlippageBps is the tolerance applied to each quoted order.
	SlippageBps uint16 `mapstructure:"slippage_bps"`
}

type Config struct {
	Fees                FeesConfig       `mapstructure:"fees"`
	Curve               CurveConfig      `mapstructure:"curve"`
	Rate                RateConfig       `mapstructure:"rate"`
	Simulation          SimulationConfig `mapstructure:"simulation"`
	GraduationThreshold uint64           `mapstructure:"graduation_threshold"`
	CreationFee         uint64           `mapstructure:"creation_fee"`
	TotalSupply         uint64           `mapstructure:"total_supply"`
	ProgramID           string           `mapstructure:"program_id"`
	Treasury            string           `mapstructure:"treasury"`
	PostgresURL         string           `mapstructure:"postgres_url"`
	LogFile             string           `mapstructure:"log_file"`
	DebugLogging        bool             `mapstructure:"debug_logging"`
	Retries             int              `mapstructure:"retries"`
	Workers             int              `mapstructure:"workers"`
	JournalPath         string           `mapstructure:"journal_path"`
	MetricsAddr         string           `mapstructure:"metrics_addr"`
	ExportDir           string           `mapstructure:"export_dir"`
	ExportFormat        string           `mapstructure:"export_format"`
}

const (
	DefaultGraduationThreshold = 69_000_000_000
	DefaultCreationFee         = 20_000_000
	DefaultBasePrice           = 100_000
	DefaultSlope               = 10
	DefaultVirtualBaseReserve  = 30_000_000_000
	DefaultVirtualTokenReserve = 1_073_000_000
	DefaultTotalSupply         = 1_000_000_000
	DefaultProgramID           = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	DefaultWorkers             = 5
	DefaultRetries             = 3

	envPrefix = "LAUNCHCURVE"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"fees.total_fee_bps":          fees.DefaultTotalFeeBps,
		"fees.protocol_fee_bps":       fees.DefaultProtocolFeeBps,
		"curve.kind":                  curve.KindConstantProduct.String(),
		"curve.base_price":            DefaultBasePrice,
		"curve.slope":                 DefaultSlope,
		"curve.virtual_base_reserve":  DefaultVirtualBaseReserve,
		"curve.virtual_token_reserve": DefaultVirtualTokenReserve,

		// 150 USD per SOL, valuation in micro-USD
		"rate.price":              150_000_000,
		"rate.scale":              valuation.LamportsPerSOL,
		"simulation.name":         "Launch Demo",
		"simulation.ticker":       "DEMO",
		"simulation.uri":          "https://example.invalid/demo.json",
		"simulation.buy_amount":   5 * valuation.LamportsPerSOL,
		"simulation.max_trades":   100,
		"simulation.traders":      4,
		"simulation.slippage_bps": 500,
		"graduation_threshold":    DefaultGraduationThreshold,
		"creation_fee":            DefaultCreationFee,
		"total_supply":            DefaultTotalSupply,
		"program_id":              DefaultProgramID,
		"treasury":                "",
		"postgres_url":            "",
		"log_file":                "launchpad.log",
		"debug_logging":           false,
		"retries":                 DefaultRetries,
		"workers":                 DefaultWorkers,
		"journal_path":            "",
		"metrics_addr":            "",
		"export_dir":              "",
		"export_format":           "json",
	}
}

// LoadConfig reads path (JSON or YAML, by extension) on top of defaults and
// applies LAUNCHCURVE_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	bindEnvironment(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func validateConfig(cfg *Config) error {
	if _, err := cfg.Schedule(); err != nil {
		return err
	}
	if _, err := cfg.NewCurve(); err != nil {
		return err
	}
	if err := cfg.ValuationRate().Validate(); err != nil {
		return err
	}
	if cfg.TotalSupply == 0 {
		return errors.New("total_supply must be positive")
	}
	if cfg.GraduationThreshold == 0 {
		return errors.New("graduation_threshold must be positive")
	}
	if _, err := cfg.ProgramKey(); err != nil {
		return err
	}
	if _, err := cfg.TreasuryKey(); err != nil {
		return err
	}
	if cfg.PostgresURL != "" {
		if err := validateURL(cfg.PostgresURL, "postgres"); err != nil {
			return fmt.Errorf("invalid postgres_url: %w", err)
		}
	}
	if cfg.ExportFormat != "csv" && cfg.ExportFormat != "json" {
		return fmt.Errorf("unsupported export_format %q", cfg.ExportFormat)
	}
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.Simulation.MaxTrades < 0 || cfg.Simulation.Traders <= 0 || cfg.Simulation.SlippageBps > fees.MaxBps {
		return errors.New("invalid simulation parameters")
	}
	return nil
}

func validateURL(rawURL, scheme string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, scheme) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// Schedule returns the validated fee schedule.
func (c *Config) Schedule() (fees.Schedule, error) {
	return fees.NewSchedule(c.Fees.TotalFeeBps, c.Fees.ProtocolFeeBps)
}

// NewCurve builds an empty curve of the configured kind.
func (c *Config) NewCurve() (curve.Curve, error) {
	kind, err := curve.ParseKind(c.Curve.Kind)
	if err != nil {
		return curve.Curve{}, err
	}

	var cv curve.Curve
	switch kind {
	case curve.KindLinear:
		cv = curve.NewLinear(c.Curve.BasePrice, c.Curve.Slope)
	case curve.KindConstantProduct:
		cv = curve.NewConstantProduct(c.Curve.VirtualBaseReserve, c.Curve.VirtualTokenReserve)
	}
	if err := cv.Validate(); err != nil {
		return curve.Curve{}, fmt.Errorf("invalid curve config: %w", err)
	}
	return cv, nil
}

func (c *Config) ValuationRate() valuation.Rate {
	return valuation.Rate{Price: c.Rate.Price, Scale: c.Rate.Scale}
}

func (c *Config) ProgramKey() (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return key, nil
}

// TreasuryKey returns the configured treasury, or the program's "treasury"
// PDA when none is set.
func (c *Config) TreasuryKey() (solana.PublicKey, error) {
	if c.Treasury != "" {
		key, err := solana.PublicKeyFromBase58(c.Treasury)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid treasury: %w", err)
		}
		return key, nil
	}

	program, err := c.ProgramKey()
	if err != nil {
		return solana.PublicKey{}, err
	}
	key, _, err := solana.FindProgramAddress([][]byte{[]byte("treasury")}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive treasury: %w", err)
	}
	return key, nil
}
