package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/google/uuid"
)

const (
	defaultMaxBetsPerRoll = 256
	defaultMaxLockedRolls = 64
	defaultMaxProbes      = 1024

	memoDeposit   = "deposit"
	memoStartRoll = "startroll "
	memoWithdraw  = "withdraw"
)

// Config contiene la configuración del exchange.
type Config struct {
	Account    domain.Account // cuenta del bankroll (recibe stakes y depósitos)
	Admin      domain.Account // única cuenta que puede pausar
	FeeAccount domain.Account // destino del fee de protocolo
	Asset      domain.Symbol  // activo de liquidación
	Claim      domain.Symbol  // claim-token (solo en modo token)
	ShareMode  domain.ShareMode
	Policy     domain.BetPolicy

	MaxBetsPerRoll int // coste de merge cuadrático en bets
	MaxLockedRolls int // acota el recorrido de rolls bloqueados en cada retiro
	MaxProbes      int // intentos para encontrar un signing value libre
}

func (c Config) withDefaults() Config {
	if c.ShareMode == "" {
		c.ShareMode = domain.ShareToken
	}
	if c.Policy == (domain.BetPolicy{}) {
		c.Policy = domain.DefaultBetPolicy()
	}
	if c.MaxBetsPerRoll <= 0 {
		c.MaxBetsPerRoll = defaultMaxBetsPerRoll
	}
	if c.MaxLockedRolls <= 0 {
		c.MaxLockedRolls = defaultMaxLockedRolls
	}
	if c.MaxProbes <= 0 {
		c.MaxProbes = defaultMaxProbes
	}
	return c
}

func (c Config) validate() error {
	if c.Account == "" || c.Admin == "" || c.FeeAccount == "" {
		return fmt.Errorf("exchange: account, admin and fee account are required")
	}
	if c.Asset.Code == "" {
		return fmt.Errorf("exchange: settlement asset is required")
	}
	switch c.ShareMode {
	case domain.ShareWeight:
	case domain.ShareToken:
		if c.Claim.Code == "" || c.Claim.Code == c.Asset.Code {
			return fmt.Errorf("exchange: token mode needs a claim symbol distinct from %s", c.Asset.Code)
		}
	default:
		return fmt.Errorf("exchange: unknown share mode %q", c.ShareMode)
	}
	return nil
}

// Exchange orquesta el ciclo de vida de los rolls, el pool de capital y los
// pagos pendientes. Cada operación pública es una transacción del Store.
type Exchange struct {
	cfg    Config
	store  ports.Store
	ledger ports.AssetLedger
	oracle ports.RandomnessOracle
	audit  ports.Auditor
	shares domain.ShareRule

	now   func() time.Time
	newID func() string
}

var (
	_ ports.TransferHandler    = (*Exchange)(nil)
	_ ports.RandomnessConsumer = (*Exchange)(nil)
)

// New crea un Exchange con todas las dependencias inyectadas. El llamante
// debe registrarlo como TransferHandler de cfg.Account en el ledger y como
// consumer en el oráculo.
func New(cfg Config, store ports.Store, ledger ports.AssetLedger, oracle ports.RandomnessOracle, audit ports.Auditor) (*Exchange, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Exchange{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		oracle: oracle,
		audit:  audit,
		shares: domain.ShareRule{
			Mode:         cfg.ShareMode,
			DecimalShift: cfg.Claim.Precision - cfg.Asset.Precision,
		},
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}, nil
}

// Config devuelve la configuración efectiva (con defaults).
func (e *Exchange) Config() Config { return e.cfg }

// SetPaused detiene o reanuda la aceptación de rolls, bets y depósitos.
// Retiros y pagos siguen funcionando.
func (e *Exchange) SetPaused(ctx context.Context, caller domain.Account, paused bool) error {
	if caller != e.cfg.Admin {
		return domain.Unauthorizedf("setpaused requires the authority of %s", e.cfg.Admin)
	}
	return e.store.Atomic(ctx, func(tx ports.Tx) error {
		pool, err := tx.LoadPool(ctx)
		if err != nil {
			return fmt.Errorf("exchange.SetPaused: %w", err)
		}
		pool.Paused = paused
		return tx.SavePool(ctx, pool)
	})
}

func (e *Exchange) asset(amount int64) domain.Asset {
	return domain.NewAsset(amount, e.cfg.Asset)
}

func (e *Exchange) loadPool(ctx context.Context, tx ports.Tx) (domain.Pool, error) {
	pool, err := tx.LoadPool(ctx)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("exchange: load pool: %w", err)
	}
	return pool, nil
}

func checkNotPaused(pool domain.Pool) error {
	if pool.Paused {
		return domain.Validationf("the bankroll is paused")
	}
	return nil
}
