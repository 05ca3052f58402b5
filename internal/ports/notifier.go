package ports

import (
	"context"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// Auditor recibe las acciones de log del exchange. Se llama al final de cada
// operación, ya aplicada pero antes del commit; no puede fallar.
type Auditor interface {
	RollAnnounced(ctx context.Context, r domain.Roll)
	BetAnnounced(ctx context.Context, r domain.Roll, b domain.Bet)
	RollStarted(ctx context.Context, r domain.Roll)
	RandomnessReceived(ctx context.Context, r domain.Roll, outcome uint32)
	BankrollChanged(ctx context.Context, before, after int64, reason string)
	Withdrawn(ctx context.Context, investor domain.Account, shares, amount int64)

	// NotifyResult avisa al creador del roll del resultado.
	NotifyResult(ctx context.Context, creator domain.Account, creatorID uint64, outcome uint32)
}
