package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "bankroll", cfg.Exchange.Account)
	assert.Equal(t, "bankroll", cfg.Exchange.Admin)
	assert.Equal(t, "token", cfg.Exchange.ShareMode)
	assert.Equal(t, "10,BRCLAIM", cfg.Exchange.Claim)
	assert.Equal(t, "orng", cfg.Oracle.Account)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "bankroll.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)

	ex, err := cfg.ExchangeSettings()
	require.NoError(t, err)
	assert.Equal(t, domain.Symbol{Code: "WAX", Precision: 8}, ex.Asset)
	assert.Equal(t, domain.Symbol{Code: "BRCLAIM", Precision: 10}, ex.Claim)
	assert.Equal(t, domain.DefaultBetPolicy(), ex.Policy)

	assert.Equal(t, time.Second, cfg.SignerSettings().PollInterval)
	assert.Equal(t, 2*time.Second, cfg.PayoutSettings().Interval)
}

func TestParse_WeightModeHasNoClaim(t *testing.T) {
	cfg, err := Parse([]byte("exchange:\n  share_mode: weight\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Exchange.Claim)

	ex, err := cfg.ExchangeSettings()
	require.NoError(t, err)
	assert.Equal(t, domain.ShareWeight, ex.ShareMode)
	assert.Empty(t, ex.Claim.Code)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BANKROLL_DSN", ":memory:")
	t.Setenv("SIGNER_PRIVATE_KEY", "abcd")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := Parse([]byte("log:\n  level: warn\nstorage:\n  dsn: other.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "abcd", cfg.Signer.PrivateKey)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
}

func TestExchangeSettings_BadSymbol(t *testing.T) {
	cfg, err := Parse([]byte("exchange:\n  asset: WAX\n"))
	require.NoError(t, err)
	_, err = cfg.ExchangeSettings()
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "bradmin", cfg.Exchange.Admin)
	assert.Equal(t, 4, cfg.Payouts.Workers)
	assert.True(t, cfg.Signer.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
