package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// ─── Pool ────────────────────────────────────────────────────────────────────

// LoadPool lee el singleton del bankroll.
func (t *sqlTx) LoadPool(ctx context.Context) (domain.Pool, error) {
	var p domain.Pool
	var rollID int64
	var paused int
	err := t.tx.QueryRowContext(ctx,
		`SELECT capital, total_weight, current_roll_id, paused FROM pool WHERE id=1`,
	).Scan(&p.Capital, &p.TotalWeight, &rollID, &paused)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("storage.LoadPool: %w", err)
	}
	p.CurrentRollID = uint64(rollID)
	p.Paused = paused == 1
	return p, nil
}

// SavePool sobrescribe el singleton del bankroll.
func (t *sqlTx) SavePool(ctx context.Context, p domain.Pool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE pool SET capital=?, total_weight=?, current_roll_id=?, paused=? WHERE id=1`,
		p.Capital, p.TotalWeight, u64(p.CurrentRollID), boolToInt(p.Paused),
	)
	if err != nil {
		return fmt.Errorf("storage.SavePool: %w", err)
	}
	return nil
}

// ─── Investors ───────────────────────────────────────────────────────────────

// Weight devuelve el peso del inversor, 0 si no existe.
func (t *sqlTx) Weight(ctx context.Context, investor domain.Account) (int64, error) {
	return t.amount(ctx, `SELECT weight FROM investors WHERE account=?`, string(investor))
}

// SetWeight guarda el peso; 0 borra el registro.
func (t *sqlTx) SetWeight(ctx context.Context, investor domain.Account, weight int64) error {
	if err := t.upsertOrDelete(ctx, "investors", "account", "weight", string(investor), weight); err != nil {
		return fmt.Errorf("storage.SetWeight: %w", err)
	}
	return nil
}

// ListInvestors devuelve los inversores ordenados por peso desc.
func (t *sqlTx) ListInvestors(ctx context.Context) ([]domain.Investor, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT account, weight FROM investors ORDER BY weight DESC, account`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListInvestors: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Investor
	for rows.Next() {
		var i domain.Investor
		var acct string
		if err := rows.Scan(&acct, &i.Weight); err != nil {
			return nil, fmt.Errorf("storage.ListInvestors: scan row: %w", err)
		}
		i.Account = domain.Account(acct)
		out = append(out, i)
	}
	return out, rows.Err()
}

// ─── Outstanding payouts ─────────────────────────────────────────────────────

// Outstanding devuelve lo pendiente de cobro del bettor, 0 si nada.
func (t *sqlTx) Outstanding(ctx context.Context, bettor domain.Account) (int64, error) {
	return t.amount(ctx, `SELECT amount FROM payouts WHERE bettor=?`, string(bettor))
}

// SetOutstanding guarda lo pendiente; 0 borra el registro.
func (t *sqlTx) SetOutstanding(ctx context.Context, bettor domain.Account, amount int64) error {
	if err := t.upsertOrDelete(ctx, "payouts", "bettor", "amount", string(bettor), amount); err != nil {
		return fmt.Errorf("storage.SetOutstanding: %w", err)
	}
	return nil
}

// ListOutstanding devuelve todos los saldos pendientes.
func (t *sqlTx) ListOutstanding(ctx context.Context) ([]domain.OutstandingPayout, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT bettor, amount FROM payouts ORDER BY amount DESC, bettor`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOutstanding: query: %w", err)
	}
	defer rows.Close()

	var out []domain.OutstandingPayout
	for rows.Next() {
		var p domain.OutstandingPayout
		var bettor string
		if err := rows.Scan(&bettor, &p.Amount); err != nil {
			return nil, fmt.Errorf("storage.ListOutstanding: scan row: %w", err)
		}
		p.Bettor = domain.Account(bettor)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ─── Balances ────────────────────────────────────────────────────────────────

// Balance devuelve el saldo de account en el símbolo code.
func (t *sqlTx) Balance(ctx context.Context, account domain.Account, code string) (int64, error) {
	return t.amount(ctx, `SELECT amount FROM balances WHERE account=? AND code=?`, string(account), code)
}

// SetBalance guarda un saldo; 0 borra la fila.
func (t *sqlTx) SetBalance(ctx context.Context, account domain.Account, code string, amount int64) error {
	var err error
	if amount == 0 {
		_, err = t.tx.ExecContext(ctx, `DELETE FROM balances WHERE account=? AND code=?`, string(account), code)
	} else {
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO balances (account, code, amount) VALUES (?,?,?)
			ON CONFLICT(account, code) DO UPDATE SET amount = excluded.amount`,
			string(account), code, amount)
	}
	if err != nil {
		return fmt.Errorf("storage.SetBalance: %w", err)
	}
	return nil
}

// Supply devuelve el supply emitido de code.
func (t *sqlTx) Supply(ctx context.Context, code string) (int64, error) {
	return t.amount(ctx, `SELECT amount FROM supply WHERE code=?`, code)
}

// SetSupply guarda el supply de code.
func (t *sqlTx) SetSupply(ctx context.Context, code string, amount int64) error {
	if err := t.upsertOrDelete(ctx, "supply", "code", "amount", code, amount); err != nil {
		return fmt.Errorf("storage.SetSupply: %w", err)
	}
	return nil
}

// Frozen indica si la cuenta no puede enviar ni recibir.
func (t *sqlTx) Frozen(ctx context.Context, account domain.Account) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM frozen WHERE account=?`, string(account)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.Frozen: %w", err)
	}
	return n > 0, nil
}

// SetFrozen congela o descongela una cuenta.
func (t *sqlTx) SetFrozen(ctx context.Context, account domain.Account, frozen bool) error {
	var err error
	if frozen {
		_, err = t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO frozen (account) VALUES (?)`, string(account))
	} else {
		_, err = t.tx.ExecContext(ctx, `DELETE FROM frozen WHERE account=?`, string(account))
	}
	if err != nil {
		return fmt.Errorf("storage.SetFrozen: %w", err)
	}
	return nil
}

// --- helpers internos ---

// amount lee una sola columna entera; sin fila devuelve 0.
func (t *sqlTx) amount(ctx context.Context, query string, args ...any) (int64, error) {
	var v int64
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage.amount: %w", err)
	}
	return v, nil
}

// upsertOrDelete mantiene tablas clave→valor donde 0 significa "sin fila".
// table y columnas son constantes del paquete, nunca entrada del usuario.
func (t *sqlTx) upsertOrDelete(ctx context.Context, table, keyCol, valCol, key string, value int64) error {
	if value == 0 {
		_, err := t.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+keyCol+`=?`, key)
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO `+table+` (`+keyCol+`, `+valCol+`) VALUES (?, ?)
		 ON CONFLICT(`+keyCol+`) DO UPDATE SET `+valCol+` = excluded.`+valCol,
		key, value)
	return err
}
