package exchange

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// PayoutBet cobra amount de las ganancias pendientes de bettor. Lo puede
// pedir el propio bettor o la cuenta del bankroll.
func (e *Exchange) PayoutBet(ctx context.Context, caller, bettor domain.Account, amount domain.Asset) error {
	if caller != bettor && caller != e.cfg.Account {
		return domain.Unauthorizedf("payoutbet requires the authority of %s or %s", bettor, e.cfg.Account)
	}
	if amount.Symbol != e.cfg.Asset {
		return domain.Validationf("amount must be in %s", e.cfg.Asset.Code)
	}
	if amount.Amount <= 0 {
		return domain.Validationf("amount must be positive")
	}
	return e.store.Atomic(ctx, func(tx ports.Tx) error {
		return e.payout(ctx, tx, bettor, amount.Amount)
	})
}

func (e *Exchange) payout(ctx context.Context, tx ports.Tx, bettor domain.Account, amount int64) error {
	owed, err := tx.Outstanding(ctx, bettor)
	if err != nil {
		return fmt.Errorf("exchange.payout: %w", err)
	}
	if owed == 0 {
		return domain.NotFoundf("the account %s has no outstanding payouts", bettor)
	}
	if amount > owed {
		return domain.Validationf("the account %s only has %s outstanding", bettor, e.asset(owed))
	}
	if err := tx.SetOutstanding(ctx, bettor, owed-amount); err != nil {
		return err
	}
	return e.ledger.Transfer(ctx, tx, e.cfg.Account, bettor, e.asset(amount), "bet payout")
}

// DeliverPayout ejecuta una entrega programada en la liquidación. Si el
// bettor ya cobró a mano parte del saldo, entrega solo lo que quede. Un fallo
// devuelve DeliveryFailure y no cambia nada: el saldo sigue reclamable.
func (e *Exchange) DeliverPayout(ctx context.Context, deliveryID string) (domain.Delivery, error) {
	var d domain.Delivery
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		if d, err = tx.GetDelivery(ctx, deliveryID); err != nil {
			return err
		}
		if d.Status != domain.DeliveryPending {
			return domain.Statef("delivery %s is %s", d.ID, d.Status)
		}

		owed, err := tx.Outstanding(ctx, d.Bettor)
		if err != nil {
			return fmt.Errorf("exchange.DeliverPayout: %w", err)
		}
		if amount := min(d.Amount, owed); amount > 0 {
			if err := e.payout(ctx, tx, d.Bettor, amount); err != nil {
				return domain.DeliveryFailed(fmt.Sprintf("delivery %s to %s", d.ID, d.Bettor), err)
			}
		}

		d.Status = domain.DeliveryDelivered
		d.Attempts++
		d.LastError = ""
		d.UpdatedAt = e.now()
		return tx.UpdateDelivery(ctx, d)
	})
	return d, err
}
