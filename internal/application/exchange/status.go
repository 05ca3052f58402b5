package exchange

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// Snapshot es una foto consistente del estado del exchange.
type Snapshot struct {
	Pool        domain.Pool
	ShareSupply int64 // peso total o supply de claim-tokens
	Rolls       []domain.Roll
	Investors   []domain.Investor // solo en modo weight
	Outstanding []domain.OutstandingPayout
	Pending     []domain.Delivery
	Asset       domain.Symbol
	Claim       domain.Symbol
	ShareMode   domain.ShareMode
}

// Reserved suma la pérdida máxima de los rolls bloqueados.
func (s Snapshot) Reserved() int64 {
	var total int64
	for _, r := range s.Rolls {
		if r.Locked() {
			total += r.MaxLoss
		}
	}
	return total
}

const statusPendingLimit = 100

// Status lee el estado completo en una transacción.
func (e *Exchange) Status(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Asset: e.cfg.Asset, Claim: e.cfg.Claim, ShareMode: e.cfg.ShareMode}
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		if snap.Pool, err = e.loadPool(ctx, tx); err != nil {
			return err
		}
		if snap.ShareSupply, err = e.supply(ctx, tx, snap.Pool); err != nil {
			return err
		}
		if snap.Rolls, err = tx.ListRolls(ctx); err != nil {
			return fmt.Errorf("exchange.Status: %w", err)
		}
		if e.cfg.ShareMode == domain.ShareWeight {
			if snap.Investors, err = tx.ListInvestors(ctx); err != nil {
				return fmt.Errorf("exchange.Status: %w", err)
			}
		}
		if snap.Outstanding, err = tx.ListOutstanding(ctx); err != nil {
			return fmt.Errorf("exchange.Status: %w", err)
		}
		if snap.Pending, err = tx.PendingDeliveries(ctx, statusPendingLimit); err != nil {
			return fmt.Errorf("exchange.Status: %w", err)
		}
		return nil
	})
	return snap, err
}

// Stake es la participación de un inversor y su valor actual en capital.
type Stake struct {
	Investor domain.Account
	Shares   int64
	Supply   int64
	Value    domain.Asset
}

// StakeOf devuelve la participación de investor.
func (e *Exchange) StakeOf(ctx context.Context, investor domain.Account) (Stake, error) {
	st := Stake{Investor: investor}
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		pool, err := e.loadPool(ctx, tx)
		if err != nil {
			return err
		}
		if st.Supply, err = e.supply(ctx, tx, pool); err != nil {
			return err
		}
		if e.cfg.ShareMode == domain.ShareWeight {
			st.Shares, err = tx.Weight(ctx, investor)
		} else {
			st.Shares, err = tx.Balance(ctx, investor, e.cfg.Claim.Code)
		}
		if err != nil {
			return fmt.Errorf("exchange.StakeOf: %w", err)
		}
		st.Value = e.asset(e.shares.Redeem(st.Shares, pool.Capital, st.Supply))
		return nil
	})
	return st, err
}

// Outstanding devuelve lo pendiente de cobro de bettor.
func (e *Exchange) Outstanding(ctx context.Context, bettor domain.Account) (domain.Asset, error) {
	var owed int64
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		owed, err = tx.Outstanding(ctx, bettor)
		return err
	})
	return e.asset(owed), err
}

// PendingDeliveries devuelve hasta limit entregas pendientes.
func (e *Exchange) PendingDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error) {
	var out []domain.Delivery
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		out, err = tx.PendingDeliveries(ctx, limit)
		return err
	})
	return out, err
}

// RecordDeliveryFailure anota un intento fallido; al llegar a maxAttempts la
// entrega pasa a FAILED y deja de reintentarse. El saldo no se toca.
func (e *Exchange) RecordDeliveryFailure(ctx context.Context, deliveryID string, cause error, maxAttempts int) (domain.Delivery, error) {
	var d domain.Delivery
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		if d, err = tx.GetDelivery(ctx, deliveryID); err != nil {
			return err
		}
		d.Attempts++
		d.LastError = cause.Error()
		d.UpdatedAt = e.now()
		if maxAttempts > 0 && d.Attempts >= maxAttempts {
			d.Status = domain.DeliveryFailedStatus
		}
		return tx.UpdateDelivery(ctx, d)
	})
	return d, err
}
