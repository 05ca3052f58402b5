package notify

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// Audit implementa ports.Auditor escribiendo cada acción como un registro
// estructurado. Las cantidades se formatean con el símbolo del activo.
type Audit struct {
	log *slog.Logger
	sym domain.Symbol
}

var _ ports.Auditor = (*Audit)(nil)

// NewAudit crea un Audit. Con logger nil usa slog.Default().
func NewAudit(logger *slog.Logger, sym domain.Symbol) *Audit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Audit{log: logger.With("component", "audit"), sym: sym}
}

func (a *Audit) amount(v int64) string {
	return domain.NewAsset(v, a.sym).String()
}

func (a *Audit) RollAnnounced(ctx context.Context, r domain.Roll) {
	a.log.InfoContext(ctx, "roll announced",
		"roll_id", r.ID,
		"creator", r.Creator,
		"creator_id", r.CreatorID,
		"max_result", r.MaxResult,
		"rake_recipient", r.RakeRecipient,
	)
}

func (a *Audit) BetAnnounced(ctx context.Context, r domain.Roll, b domain.Bet) {
	a.log.InfoContext(ctx, "bet announced",
		"roll_id", r.ID,
		"bet_id", b.ID,
		"bettor", b.Bettor,
		"stake", a.amount(b.Stake),
		"range", []uint32{b.Lower, b.Upper},
		"multiplier", b.Multiplier,
	)
}

func (a *Audit) RollStarted(ctx context.Context, r domain.Roll) {
	a.log.InfoContext(ctx, "roll started",
		"roll_id", r.ID,
		"bets", r.BetCount,
		"total_stake", a.amount(r.TotalStake),
		"required_capital", a.amount(r.RequiredCapital),
		"max_loss", a.amount(r.MaxLoss),
		"rake", a.amount(r.Rake),
		"fee", a.amount(r.Fee),
		"signing_value", r.SigningValue,
	)
}

func (a *Audit) RandomnessReceived(ctx context.Context, r domain.Roll, outcome uint32) {
	a.log.InfoContext(ctx, "randomness received", "roll_id", r.ID, "signing_value", r.SigningValue, "outcome", outcome)
}

func (a *Audit) BankrollChanged(ctx context.Context, before, after int64, reason string) {
	a.log.InfoContext(ctx, "bankroll changed",
		"before", a.amount(before),
		"after", a.amount(after),
		"reason", reason,
	)
}

func (a *Audit) Withdrawn(ctx context.Context, investor domain.Account, shares, amount int64) {
	a.log.InfoContext(ctx, "capital withdrawn", "investor", investor, "shares", shares, "amount", a.amount(amount))
}

// NotifyResult deja constancia del resultado para el creador del roll.
func (a *Audit) NotifyResult(ctx context.Context, creator domain.Account, creatorID uint64, outcome uint32) {
	a.log.InfoContext(ctx, "roll result", "creator", creator, "creator_id", creatorID, "outcome", outcome)
}
