package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/bankroll/internal/adapters/oracle"
	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/application/payout"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Signer   SignerConfig   `yaml:"signer"`
	Payouts  PayoutsConfig  `yaml:"payouts"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ExchangeConfig controla cuentas, activos, reparto del edge y límites.
type ExchangeConfig struct {
	Account    string `yaml:"account"`
	Admin      string `yaml:"admin"`
	FeeAccount string `yaml:"fee_account"`
	Asset      string `yaml:"asset"` // "8,WAX"
	Claim      string `yaml:"claim"` // "10,BRCLAIM" (solo share_mode: token)
	ShareMode  string `yaml:"share_mode"`

	MinOdds   float64 `yaml:"min_odds"`
	MaxEV     float64 `yaml:"max_ev"`
	PoolEdge  float64 `yaml:"pool_edge"`  // parte del edge que se queda el pool
	RakeShare float64 `yaml:"rake_share"` // fracción del resto para el rake recipient

	MaxBetsPerRoll int `yaml:"max_bets_per_roll"`
	MaxLockedRolls int `yaml:"max_locked_rolls"`
}

// OracleConfig identifica la cuenta del oráculo de aleatoriedad.
type OracleConfig struct {
	Account string `yaml:"account"`
	Admin   string `yaml:"admin"`
}

// SignerConfig controla el proceso que firma los jobs del oráculo.
type SignerConfig struct {
	Enabled        bool    `yaml:"enabled"`
	PrivateKey     string  `yaml:"private_key"` // hex; mejor vía SIGNER_PRIVATE_KEY
	PollIntervalMS int     `yaml:"poll_interval_ms"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
}

// PayoutsConfig controla el dispatcher de entregas programadas.
type PayoutsConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds int     `yaml:"interval_seconds"`
	BatchSize       int     `yaml:"batch_size"`
	Workers         int     `yaml:"workers"`
	RatePerSec      float64 `yaml:"rate_per_sec"`
	MaxAttempts     int     `yaml:"max_attempts"`
}

// HTTPConfig controla la superficie HTTP.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta el YAML ya leído y aplica overrides de entorno y defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ExchangeSettings traduce la sección exchange a la configuración del exchange.
func (c *Config) ExchangeSettings() (exchange.Config, error) {
	asset, err := domain.ParseSymbol(c.Exchange.Asset)
	if err != nil {
		return exchange.Config{}, fmt.Errorf("config: exchange.asset: %w", err)
	}
	var claim domain.Symbol
	if c.Exchange.Claim != "" {
		if claim, err = domain.ParseSymbol(c.Exchange.Claim); err != nil {
			return exchange.Config{}, fmt.Errorf("config: exchange.claim: %w", err)
		}
	}
	return exchange.Config{
		Account:    domain.Account(c.Exchange.Account),
		Admin:      domain.Account(c.Exchange.Admin),
		FeeAccount: domain.Account(c.Exchange.FeeAccount),
		Asset:      asset,
		Claim:      claim,
		ShareMode:  domain.ShareMode(c.Exchange.ShareMode),
		Policy: domain.BetPolicy{
			MinOdds:   c.Exchange.MinOdds,
			MaxEV:     c.Exchange.MaxEV,
			PoolEdge:  c.Exchange.PoolEdge,
			RakeShare: c.Exchange.RakeShare,
		},
		MaxBetsPerRoll: c.Exchange.MaxBetsPerRoll,
		MaxLockedRolls: c.Exchange.MaxLockedRolls,
	}, nil
}

// SignerSettings devuelve la configuración del signer.
func (c *Config) SignerSettings() oracle.SignerConfig {
	return oracle.SignerConfig{
		PollInterval: time.Duration(c.Signer.PollIntervalMS) * time.Millisecond,
		RatePerSec:   c.Signer.RatePerSec,
	}
}

// PayoutSettings devuelve la configuración del dispatcher.
func (c *Config) PayoutSettings() payout.Config {
	return payout.Config{
		Interval:    time.Duration(c.Payouts.IntervalSeconds) * time.Second,
		BatchSize:   c.Payouts.BatchSize,
		Workers:     c.Payouts.Workers,
		RatePerSec:  c.Payouts.RatePerSec,
		MaxAttempts: c.Payouts.MaxAttempts,
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BANKROLL_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SIGNER_PRIVATE_KEY"); v != "" {
		cfg.Signer.PrivateKey = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los límites de apuesta a cero los completa el exchange con los del contrato.
func setDefaults(cfg *Config) {
	if cfg.Exchange.Account == "" {
		cfg.Exchange.Account = "bankroll"
	}
	if cfg.Exchange.Admin == "" {
		cfg.Exchange.Admin = cfg.Exchange.Account
	}
	if cfg.Exchange.FeeAccount == "" {
		cfg.Exchange.FeeAccount = "protocolfee"
	}
	if cfg.Exchange.Asset == "" {
		cfg.Exchange.Asset = "8,WAX"
	}
	if cfg.Exchange.ShareMode == "" {
		cfg.Exchange.ShareMode = string(domain.ShareToken)
	}
	if cfg.Exchange.Claim == "" && cfg.Exchange.ShareMode == string(domain.ShareToken) {
		cfg.Exchange.Claim = "10,BRCLAIM"
	}
	def := domain.DefaultBetPolicy()
	if cfg.Exchange.MinOdds <= 0 {
		cfg.Exchange.MinOdds = def.MinOdds
	}
	if cfg.Exchange.MaxEV <= 0 {
		cfg.Exchange.MaxEV = def.MaxEV
	}
	if cfg.Exchange.PoolEdge <= 0 {
		cfg.Exchange.PoolEdge = def.PoolEdge
	}
	if cfg.Exchange.RakeShare <= 0 {
		cfg.Exchange.RakeShare = def.RakeShare
	}
	if cfg.Oracle.Account == "" {
		cfg.Oracle.Account = "orng"
	}
	if cfg.Oracle.Admin == "" {
		cfg.Oracle.Admin = cfg.Exchange.Admin
	}
	if cfg.Signer.PollIntervalMS <= 0 {
		cfg.Signer.PollIntervalMS = 1000
	}
	if cfg.Payouts.IntervalSeconds <= 0 {
		cfg.Payouts.IntervalSeconds = 2
	}
	if cfg.Payouts.MaxAttempts <= 0 {
		cfg.Payouts.MaxAttempts = 5
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "bankroll.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
