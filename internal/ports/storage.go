package ports

import (
	"context"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// Store es el almacenamiento persistente con semántica transaccional: cada
// operación del exchange corre entera dentro de una sola llamada a Atomic.
type Store interface {
	// Atomic ejecuta fn en una transacción. Si fn devuelve error, todos los
	// cambios se descartan; si no, se confirman juntos.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

// Tx agrupa todos los repositorios accesibles dentro de una transacción.
type Tx interface {
	PoolRepo
	RollRepo
	BetRepo
	InvestorRepo
	PayoutRepo
	DeliveryRepo
	OracleRepo
	BalanceRepo
}

// PoolRepo persiste el singleton del bankroll.
type PoolRepo interface {
	LoadPool(ctx context.Context) (domain.Pool, error)
	SavePool(ctx context.Context, p domain.Pool) error
}

// RollRepo persiste los rolls. Índices secundarios: creator/creator_id (único)
// y estado (para recorrer los rolls bloqueados antes de un retiro).
type RollRepo interface {
	InsertRoll(ctx context.Context, r domain.Roll) error
	GetRoll(ctx context.Context, id uint64) (domain.Roll, error)
	FindRollByCreator(ctx context.Context, creator domain.Account, creatorID uint64) (domain.Roll, error)
	UpdateRoll(ctx context.Context, r domain.Roll) error
	DeleteRoll(ctx context.Context, id uint64) error
	// LockedRolls devuelve los rolls financiados y aún sin liquidar.
	LockedRolls(ctx context.Context) ([]domain.Roll, error)
	ListRolls(ctx context.Context) ([]domain.Roll, error)
}

// BetRepo persiste las bets de cada roll.
type BetRepo interface {
	// InsertBet asigna el id de la bet, creciente en orden de registro.
	InsertBet(ctx context.Context, b domain.Bet) (uint64, error)
	// BetsForRoll devuelve las bets en orden de registro.
	BetsForRoll(ctx context.Context, rollID uint64) ([]domain.Bet, error)
	DeleteBets(ctx context.Context, rollID uint64) error
}

// InvestorRepo persiste los pesos en modo weight.
type InvestorRepo interface {
	// Weight devuelve 0 si el inversor no existe.
	Weight(ctx context.Context, investor domain.Account) (int64, error)
	// SetWeight borra el registro cuando weight llega a 0.
	SetWeight(ctx context.Context, investor domain.Account, weight int64) error
	ListInvestors(ctx context.Context) ([]domain.Investor, error)
}

// PayoutRepo persiste las ganancias pendientes de cobro.
type PayoutRepo interface {
	// Outstanding devuelve 0 si el bettor no tiene nada pendiente.
	Outstanding(ctx context.Context, bettor domain.Account) (int64, error)
	// SetOutstanding borra el registro cuando amount llega a 0.
	SetOutstanding(ctx context.Context, bettor domain.Account, amount int64) error
	ListOutstanding(ctx context.Context) ([]domain.OutstandingPayout, error)
}

// DeliveryRepo persiste las entregas programadas durante la liquidación.
type DeliveryRepo interface {
	EnqueueDelivery(ctx context.Context, d domain.Delivery) error
	GetDelivery(ctx context.Context, id string) (domain.Delivery, error)
	PendingDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error)
	UpdateDelivery(ctx context.Context, d domain.Delivery) error
}

// OracleRepo persiste el estado del oráculo de aleatoriedad.
type OracleRepo interface {
	LoadOracleConfig(ctx context.Context) (domain.OracleConfig, error)
	SaveOracleConfig(ctx context.Context, c domain.OracleConfig) error
	InsertJob(ctx context.Context, j domain.RandomJob) error
	GetJob(ctx context.Context, id uint64) (domain.RandomJob, error)
	DeleteJob(ctx context.Context, id uint64) error
	OpenJobs(ctx context.Context) ([]domain.RandomJob, error)
	// MarkValueUsed falla con StateError si el valor ya se usó.
	MarkValueUsed(ctx context.Context, value uint64) error
	ValueUsed(ctx context.Context, value uint64) (bool, error)
}

// BalanceRepo persiste los saldos del ledger de activos.
type BalanceRepo interface {
	Balance(ctx context.Context, account domain.Account, code string) (int64, error)
	SetBalance(ctx context.Context, account domain.Account, code string, amount int64) error
	Supply(ctx context.Context, code string) (int64, error)
	SetSupply(ctx context.Context, code string, amount int64) error
	Frozen(ctx context.Context, account domain.Account) (bool, error)
	SetFrozen(ctx context.Context, account domain.Account, frozen bool) error
}
