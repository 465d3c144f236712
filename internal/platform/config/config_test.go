package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/pkg/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)

	table, err := cfg.ValuationTable()
	require.NoError(t, err)
	assert.True(t, table[domain.ContributionFood].Equal(decimal.NewFromInt(5)))
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "donorhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
valuation:
  books: "3.50"
scheduler:
  interval: 30s
`), 0o600))
	t.Setenv("DONORHUB_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)

	table, err := cfg.ValuationTable()
	require.NoError(t, err)
	assert.True(t, table[domain.ContributionBooks].Equal(decimal.RequireFromString("3.5")))
}

func TestValidate(t *testing.T) {
	t.Run("postgres needs a dsn", func(t *testing.T) {
		t.Setenv("DONORHUB_STORAGE_DRIVER", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "postgres.dsn")
	})

	t.Run("valuation rejects money and unknown categories", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{Driver: "memory"}, Receipt: ReceiptConfig{Backend: "memory"},
			Valuation: map[string]string{"money": "1"}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("valuation caps unit values", func(t *testing.T) {
		cfg := &Config{Valuation: map[string]string{"food": "1000000"}}
		_, err := cfg.ValuationTable()
		require.NoError(t, err)

		cfg.Valuation["food"] = "1000000.01"
		_, err = cfg.ValuationTable()
		assert.ErrorContains(t, err, "invalid unit value")
	})
}
