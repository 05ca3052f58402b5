package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// Ledger implementa ports.AssetLedger sobre el Store: saldos por cuenta y
// símbolo, cuentas congeladas y emisión/retirada de claim-tokens. No abre
// transacciones propias, siempre opera en la del llamante.
type Ledger struct {
	mu       sync.RWMutex
	handlers map[domain.Account]ports.TransferHandler
}

var _ ports.AssetLedger = (*Ledger)(nil)

// New crea un Ledger sin handlers.
func New() *Ledger {
	return &Ledger{handlers: make(map[domain.Account]ports.TransferHandler)}
}

// Register asocia un handler a las transferencias entrantes de account.
func (l *Ledger) Register(account domain.Account, h ports.TransferHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[account] = h
}

func (l *Ledger) handler(account domain.Account) ports.TransferHandler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handlers[account]
}

// Transfer mueve amount de from a to y notifica a to si tiene handler.
// Un rechazo del handler deshace la transferencia (misma transacción).
func (l *Ledger) Transfer(ctx context.Context, tx ports.Tx, from, to domain.Account, amount domain.Asset, memo string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if from == to {
		return domain.Validationf("cannot transfer to self")
	}
	if to == "" {
		return domain.Validationf("recipient account is required")
	}
	for _, acct := range []domain.Account{from, to} {
		frozen, err := tx.Frozen(ctx, acct)
		if err != nil {
			return fmt.Errorf("ledger.Transfer: %w", err)
		}
		if frozen {
			return domain.Unauthorizedf("account %s is frozen", acct)
		}
	}

	if err := l.move(ctx, tx, from, amount, -amount.Amount); err != nil {
		return err
	}
	if err := l.move(ctx, tx, to, amount, amount.Amount); err != nil {
		return err
	}
	slog.Debug("ledger: transfer", "from", from, "to", to, "amount", amount.String(), "memo", memo)

	if h := l.handler(to); h != nil {
		return h.OnTransfer(ctx, tx, from, amount, memo)
	}
	return nil
}

// Issue crea amount nuevos a favor de to.
func (l *Ledger) Issue(ctx context.Context, tx ports.Tx, to domain.Account, amount domain.Asset, memo string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	supply, err := tx.Supply(ctx, amount.Symbol.Code)
	if err != nil {
		return fmt.Errorf("ledger.Issue: %w", err)
	}
	if supply > math.MaxInt64-amount.Amount {
		return domain.Validationf("%s supply would overflow", amount.Symbol.Code)
	}
	if err := tx.SetSupply(ctx, amount.Symbol.Code, supply+amount.Amount); err != nil {
		return fmt.Errorf("ledger.Issue: %w", err)
	}
	if err := l.move(ctx, tx, to, amount, amount.Amount); err != nil {
		return err
	}
	slog.Debug("ledger: issue", "to", to, "amount", amount.String(), "memo", memo)
	return nil
}

// Retire destruye amount del saldo de holder.
func (l *Ledger) Retire(ctx context.Context, tx ports.Tx, holder domain.Account, amount domain.Asset, memo string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.move(ctx, tx, holder, amount, -amount.Amount); err != nil {
		return err
	}
	supply, err := tx.Supply(ctx, amount.Symbol.Code)
	if err != nil {
		return fmt.Errorf("ledger.Retire: %w", err)
	}
	if supply < amount.Amount {
		return domain.Statef("%s supply %d below retired amount %d", amount.Symbol.Code, supply, amount.Amount)
	}
	if err := tx.SetSupply(ctx, amount.Symbol.Code, supply-amount.Amount); err != nil {
		return fmt.Errorf("ledger.Retire: %w", err)
	}
	slog.Debug("ledger: retire", "holder", holder, "amount", amount.String(), "memo", memo)
	return nil
}

// Supply devuelve el supply en circulación de sym.
func (l *Ledger) Supply(ctx context.Context, tx ports.Tx, sym domain.Symbol) (int64, error) {
	s, err := tx.Supply(ctx, sym.Code)
	if err != nil {
		return 0, fmt.Errorf("ledger.Supply: %w", err)
	}
	return s, nil
}

// BalanceOf devuelve el saldo de account en sym.
func (l *Ledger) BalanceOf(ctx context.Context, tx ports.Tx, account domain.Account, sym domain.Symbol) (domain.Asset, error) {
	b, err := tx.Balance(ctx, account, sym.Code)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("ledger.BalanceOf: %w", err)
	}
	return domain.NewAsset(b, sym), nil
}

// SetFrozen congela o descongela una cuenta (restricción del host).
func (l *Ledger) SetFrozen(ctx context.Context, tx ports.Tx, account domain.Account, frozen bool) error {
	if err := tx.SetFrozen(ctx, account, frozen); err != nil {
		return fmt.Errorf("ledger.SetFrozen: %w", err)
	}
	return nil
}

// move aplica delta al saldo; nunca lo deja negativo.
func (l *Ledger) move(ctx context.Context, tx ports.Tx, account domain.Account, amount domain.Asset, delta int64) error {
	bal, err := tx.Balance(ctx, account, amount.Symbol.Code)
	if err != nil {
		return fmt.Errorf("ledger.move: %w", err)
	}
	if bal+delta < 0 {
		return domain.Validationf("overdrawn balance: %s has %s", account, domain.NewAsset(bal, amount.Symbol))
	}
	if delta > 0 && bal > math.MaxInt64-delta {
		return domain.Validationf("balance of %s would overflow", account)
	}
	if err := tx.SetBalance(ctx, account, amount.Symbol.Code, bal+delta); err != nil {
		return fmt.Errorf("ledger.move: %w", err)
	}
	return nil
}

func checkAmount(a domain.Asset) error {
	if !a.IsValid() {
		return domain.Validationf("amount %s is invalid", a)
	}
	if a.Amount <= 0 {
		return domain.Validationf("must transfer positive quantity")
	}
	return nil
}
