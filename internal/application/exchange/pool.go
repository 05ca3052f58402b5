package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// OnTransfer procesa las transferencias entrantes a la cuenta del bankroll:
//
//	activo de liquidación, memo "deposit"            → depósito de capital
//	activo de liquidación, memo "startroll <id>"     → financiar y bloquear un roll
//	claim-token,           memo "withdraw"           → retiro de capital (modo token)
//
// Cualquier otra combinación se rechaza y la transferencia se deshace.
func (e *Exchange) OnTransfer(ctx context.Context, tx ports.Tx, from domain.Account, amount domain.Asset, memo string) error {
	switch {
	case amount.Symbol == e.cfg.Asset:
		switch {
		case memo == memoDeposit:
			return e.deposit(ctx, tx, from, amount)
		case strings.HasPrefix(memo, memoStartRoll):
			creatorID, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(memo, memoStartRoll)), 10, 64)
			if err != nil {
				return domain.Validationf("invalid startroll memo %q", memo)
			}
			return e.startRoll(ctx, tx, from, creatorID, amount)
		}
	case e.cfg.ShareMode == domain.ShareToken && amount.Symbol == e.cfg.Claim:
		if memo == memoWithdraw {
			return e.withdrawTokens(ctx, tx, from, amount)
		}
	default:
		return domain.Validationf("unsupported asset %s", amount.Symbol)
	}
	return domain.Validationf("invalid memo %q", memo)
}

// deposit añade capital y emite participaciones al depositante.
func (e *Exchange) deposit(ctx context.Context, tx ports.Tx, from domain.Account, amount domain.Asset) error {
	pool, err := e.loadPool(ctx, tx)
	if err != nil {
		return err
	}
	if err := checkNotPaused(pool); err != nil {
		return err
	}

	supply, err := e.supply(ctx, tx, pool)
	if err != nil {
		return err
	}
	shares, err := e.shares.Issue(amount.Amount, pool.Capital, supply)
	if err != nil {
		return err
	}
	if shares <= 0 {
		return domain.Validationf("deposit %s is too small to earn a share of the bankroll", amount)
	}

	before := pool.Capital
	if err := pool.Credit(amount.Amount); err != nil {
		return err
	}
	switch e.cfg.ShareMode {
	case domain.ShareWeight:
		held, err := tx.Weight(ctx, from)
		if err != nil {
			return fmt.Errorf("exchange.deposit: %w", err)
		}
		if err := tx.SetWeight(ctx, from, held+shares); err != nil {
			return err
		}
		pool.TotalWeight += shares
	default:
		claim := domain.NewAsset(shares, e.cfg.Claim)
		if err := e.ledger.Issue(ctx, tx, from, claim, "bankroll deposit"); err != nil {
			return err
		}
	}
	if err := tx.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("exchange.deposit: %w", err)
	}
	e.audit.BankrollChanged(ctx, before, pool.Capital, "deposit by "+string(from))
	return nil
}

// withdrawTokens quema los claim-tokens recibidos y devuelve su parte de capital.
func (e *Exchange) withdrawTokens(ctx context.Context, tx ports.Tx, from domain.Account, claim domain.Asset) error {
	pool, err := e.loadPool(ctx, tx)
	if err != nil {
		return err
	}
	// Los tokens ya están en la cuenta del bankroll pero siguen en circulación
	// hasta retirarlos: el supply los incluye.
	supply, err := e.supply(ctx, tx, pool)
	if err != nil {
		return err
	}
	amount := e.shares.Redeem(claim.Amount, pool.Capital, supply)
	if err := e.checkWithdrawal(ctx, tx, pool.Capital-amount); err != nil {
		return err
	}

	if err := e.ledger.Retire(ctx, tx, e.cfg.Account, claim, "bankroll withdraw"); err != nil {
		return err
	}
	return e.payOut(ctx, tx, pool, from, claim.Amount, amount)
}

// Withdraw retira weight participaciones de investor (modo weight).
func (e *Exchange) Withdraw(ctx context.Context, investor domain.Account, weight int64) (domain.Asset, error) {
	if e.cfg.ShareMode != domain.ShareWeight {
		return domain.Asset{}, domain.Validationf("withdraw by weight needs share mode %q; send %s with memo %q instead",
			domain.ShareWeight, e.cfg.Claim.Code, memoWithdraw)
	}
	if investor == "" {
		return domain.Asset{}, domain.Unauthorizedf("investor is required")
	}
	if weight <= 0 {
		return domain.Asset{}, domain.Validationf("weight to withdraw must be positive")
	}

	var amount int64
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		held, err := tx.Weight(ctx, investor)
		if err != nil {
			return fmt.Errorf("exchange.Withdraw: %w", err)
		}
		if held == 0 {
			return domain.NotFoundf("the account %s doesn't have anything invested", investor)
		}
		if weight > held {
			return domain.Validationf("the account %s only holds %d weight", investor, held)
		}

		pool, err := e.loadPool(ctx, tx)
		if err != nil {
			return err
		}
		amount = e.shares.Redeem(weight, pool.Capital, pool.TotalWeight)
		if err := e.checkWithdrawal(ctx, tx, pool.Capital-amount); err != nil {
			return err
		}
		if err := tx.SetWeight(ctx, investor, held-weight); err != nil {
			return err
		}
		pool.TotalWeight -= weight
		return e.payOut(ctx, tx, pool, investor, weight, amount)
	})
	return e.asset(amount), err
}

// payOut descuenta amount del capital, guarda el pool y transfiere al inversor.
func (e *Exchange) payOut(ctx context.Context, tx ports.Tx, pool domain.Pool, to domain.Account, shares, amount int64) error {
	before := pool.Capital
	if err := pool.Credit(-amount); err != nil {
		return err
	}
	if err := tx.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("exchange.payOut: %w", err)
	}
	if amount > 0 {
		if err := e.ledger.Transfer(ctx, tx, e.cfg.Account, to, e.asset(amount), "bankroll withdraw"); err != nil {
			return err
		}
	}
	e.audit.Withdrawn(ctx, to, shares, amount)
	e.audit.BankrollChanged(ctx, before, pool.Capital, "withdraw by "+string(to))
	return nil
}

// checkWithdrawal exige que el capital restante siga cubriendo cada roll
// bloqueado y la suma de sus pérdidas máximas. El número de rolls bloqueados
// está acotado por MaxLockedRolls.
func (e *Exchange) checkWithdrawal(ctx context.Context, tx ports.Tx, remaining int64) error {
	locked, err := tx.LockedRolls(ctx)
	if err != nil {
		return fmt.Errorf("exchange.checkWithdrawal: %w", err)
	}
	var reserved int64
	for _, r := range locked {
		if remaining < r.RequiredCapital {
			return domain.Capacityf("withdrawal would leave %s but roll %d requires %s until settled",
				e.asset(remaining), r.ID, e.asset(r.RequiredCapital))
		}
		reserved += r.MaxLoss
	}
	if remaining < reserved {
		return domain.Capacityf("withdrawal would leave %s but open rolls can lose up to %s",
			e.asset(remaining), e.asset(reserved))
	}
	return nil
}

// supply es el denominador de las participaciones según el modo.
func (e *Exchange) supply(ctx context.Context, tx ports.Tx, pool domain.Pool) (int64, error) {
	if e.cfg.ShareMode == domain.ShareWeight {
		return pool.TotalWeight, nil
	}
	return e.ledger.Supply(ctx, tx, e.cfg.Claim)
}
