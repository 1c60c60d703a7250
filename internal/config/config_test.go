package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchcurve/internal/curve"
	"github.com/rovshanmuradov/launchcurve/internal/fees"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	schedule, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, fees.DefaultSchedule(), schedule)

	assert.Equal(t, uint64(DefaultGraduationThreshold), cfg.GraduationThreshold)
	assert.Equal(t, uint64(DefaultCreationFee), cfg.CreationFee)
	assert.Equal(t, uint64(DefaultTotalSupply), cfg.TotalSupply)
	assert.Equal(t, DefaultWorkers, cfg.Workers)

	cv, err := cfg.NewCurve()
	require.NoError(t, err)
	assert.Equal(t, curve.NewConstantProduct(DefaultVirtualBaseReserve, DefaultVirtualTokenReserve), cv)

	program, err := cfg.ProgramKey()
	require.NoError(t, err)
	treasury, err := cfg.TreasuryKey()
	require.NoError(t, err)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("treasury")}, program)
	require.NoError(t, err)
	assert.Equal(t, want, treasury)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, "launchpad.yaml", `
fees:
  total_fee_bps: 200
  protocol_fee_bps: 25
curve:
  kind: linear
  base_price: 1000
  slope: 1
graduation_threshold: 1000000
workers: 2
`)
	t.Setenv("LAUNCHCURVE_FEES_PROTOCOL_FEE_BPS", "75")
	t.Setenv("LAUNCHCURVE_RETRIES", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	schedule, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, fees.Schedule{TotalFeeBps: 200, ProtocolFeeBps: 75}, schedule)
	assert.Equal(t, 7, cfg.Retries)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, uint64(1_000_000), cfg.GraduationThreshold)

	cv, err := cfg.NewCurve()
	require.NoError(t, err)
	assert.Equal(t, curve.NewLinear(1000, 1), cv)
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "launchpad.json", `{"treasury": "11111111111111111111111111111111", "metrics_addr": ":9100"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.MetricsAddr)

	treasury, err := cfg.TreasuryKey()
	require.NoError(t, err)
	assert.Equal(t, solana.SystemProgramID, treasury)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"protocol above total", `{"fees": {"total_fee_bps": 10, "protocol_fee_bps": 20}}`},
		{"total above max", `{"fees": {"total_fee_bps": 10001, "protocol_fee_bps": 0}}`},
		{"unknown curve", `{"curve": {"kind": "exponential"}}`},
		{"zero virtual reserve", `{"curve": {"virtual_base_reserve": 0}}`},
		{"zero supply", `{"total_supply": 0}`},
		{"zero threshold", `{"graduation_threshold": 0}`},
		{"zero rate scale", `{"rate": {"scale": 0}}`},
		{"bad program id", `{"program_id": "not-a-key"}`},
		{"bad treasury", `{"treasury": "0OIl"}`},
		{"bad postgres url", `{"postgres_url": "mysql://localhost/db"}`},
		{"no workers", `{"workers": 0}`},
		{"negative retries", `{"retries": -1}`},
		{"bad export format", `{"export_format": "xml"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "cfg.json", tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
