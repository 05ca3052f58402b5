package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// ReceiveRandomness liquida el roll assocID con el hash verificado por el
// oráculo. Corre dentro de la transacción de setrand: si falla, el job sigue
// abierto y nada cambia.
func (e *Exchange) ReceiveRandomness(ctx context.Context, tx ports.Tx, assocID uint64, randomHash [32]byte) error {
	roll, err := tx.GetRoll(ctx, assocID)
	if err != nil {
		return err
	}
	if roll.State != domain.RollAwaitingRandomness {
		return domain.Statef("roll %d is %s, not awaiting randomness", roll.ID, roll.State)
	}
	outcome := domain.OutcomeFromHash(randomHash, roll.MaxResult)

	bets, err := tx.BetsForRoll(ctx, roll.ID)
	if err != nil {
		return fmt.Errorf("exchange.ReceiveRandomness: %w", err)
	}

	var stakes, winnings int64
	now := e.now()
	for _, b := range bets {
		stakes += b.Stake
		if !b.Contains(outcome) {
			continue
		}
		payout := b.Payout()
		winnings += payout

		owed, err := tx.Outstanding(ctx, b.Bettor)
		if err != nil {
			return fmt.Errorf("exchange.ReceiveRandomness: %w", err)
		}
		if err := tx.SetOutstanding(ctx, b.Bettor, owed+payout); err != nil {
			return err
		}
		// Una entrega por bet: dos premios del mismo bettor no se pisan.
		if err := tx.EnqueueDelivery(ctx, domain.Delivery{
			ID:        e.newID(),
			RollID:    roll.ID,
			BetID:     b.ID,
			Bettor:    b.Bettor,
			Amount:    payout,
			Status:    domain.DeliveryPending,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	if stakes != roll.TotalStake {
		return domain.Statef("roll %d: bets add up to %d but the roll recorded %d", roll.ID, stakes, roll.TotalStake)
	}

	pool, err := e.loadPool(ctx, tx)
	if err != nil {
		return err
	}
	before := pool.Capital
	if err := pool.Credit(stakes - winnings); err != nil {
		return err
	}
	if err := tx.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("exchange.ReceiveRandomness: %w", err)
	}

	if err := roll.Transition(domain.RollSettled); err != nil {
		return err
	}
	if err := tx.DeleteBets(ctx, roll.ID); err != nil {
		return err
	}
	if err := tx.DeleteRoll(ctx, roll.ID); err != nil {
		return err
	}

	slog.Info("roll settled",
		"roll_id", roll.ID,
		"outcome", outcome,
		"bets", len(bets),
		"stakes", stakes,
		"winnings", winnings,
	)
	e.audit.RandomnessReceived(ctx, roll, outcome)
	e.audit.BankrollChanged(ctx, before, pool.Capital, fmt.Sprintf("roll %d settled", roll.ID))
	e.audit.NotifyResult(ctx, roll.Creator, roll.CreatorID, outcome)
	return nil
}
