package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

const rollColumns = `id, creator, creator_id, max_result, rake_recipient, state, total_stake, bet_count,
	collected, rake, fee, max_loss, required_capital, signing_value, created_at, locked_at`

// InsertRoll crea un roll. Un creator_id repetido del mismo creador es StateError.
func (t *sqlTx) InsertRoll(ctx context.Context, r domain.Roll) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO rolls
		  (id, creator, creator_id, creator_key, max_result, rake_recipient, state, total_stake, bet_count,
		   collected, rake, fee, max_loss, required_capital, signing_value, created_at, locked_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u64(r.ID), string(r.Creator), u64(r.CreatorID), r.CreatorKey(), r.MaxResult, string(r.RakeRecipient),
		string(r.State), r.TotalStake, r.BetCount, r.Collected, r.Rake, r.Fee, r.MaxLoss, r.RequiredCapital,
		u64(r.SigningValue), r.CreatedAt.UTC(), nullTime(r.LockedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Statef("roll %s already exists", r.CreatorKey())
		}
		return fmt.Errorf("storage.InsertRoll: %w", err)
	}
	return nil
}

// GetRoll busca un roll por id.
func (t *sqlTx) GetRoll(ctx context.Context, id uint64) (domain.Roll, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+rollColumns+` FROM rolls WHERE id=?`, u64(id))
	r, err := scanRoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Roll{}, domain.NotFoundf("roll %d not found", id)
	}
	if err != nil {
		return domain.Roll{}, fmt.Errorf("storage.GetRoll: %w", err)
	}
	return r, nil
}

// FindRollByCreator usa el índice creator/creator_id.
func (t *sqlTx) FindRollByCreator(ctx context.Context, creator domain.Account, creatorID uint64) (domain.Roll, error) {
	key := domain.CreatorKey(creator, creatorID)
	row := t.tx.QueryRowContext(ctx, `SELECT `+rollColumns+` FROM rolls WHERE creator_key=?`, key)
	r, err := scanRoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Roll{}, domain.NotFoundf("no roll with creator_id %d announced by %s", creatorID, creator)
	}
	if err != nil {
		return domain.Roll{}, fmt.Errorf("storage.FindRollByCreator: %w", err)
	}
	return r, nil
}

// UpdateRoll sobrescribe los campos mutables del roll.
func (t *sqlTx) UpdateRoll(ctx context.Context, r domain.Roll) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE rolls SET state=?, total_stake=?, bet_count=?, collected=?, rake=?, fee=?,
		       max_loss=?, required_capital=?, signing_value=?, locked_at=?
		WHERE id=?`,
		string(r.State), r.TotalStake, r.BetCount, r.Collected, r.Rake, r.Fee,
		r.MaxLoss, r.RequiredCapital, u64(r.SigningValue), nullTime(r.LockedAt), u64(r.ID),
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateRoll: %w", err)
	}
	return mustAffect(res, domain.NotFoundf("roll %d not found", r.ID))
}

// DeleteRoll borra el registro del roll (sus bets se borran aparte).
func (t *sqlTx) DeleteRoll(ctx context.Context, id uint64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM rolls WHERE id=?`, u64(id))
	if err != nil {
		return fmt.Errorf("storage.DeleteRoll: %w", err)
	}
	return mustAffect(res, domain.NotFoundf("roll %d not found", id))
}

// LockedRolls recorre el índice de estado: rolls financiados sin liquidar.
func (t *sqlTx) LockedRolls(ctx context.Context) ([]domain.Roll, error) {
	return t.queryRolls(ctx, `SELECT `+rollColumns+` FROM rolls WHERE state IN (?, ?) ORDER BY id`,
		string(domain.RollLocked), string(domain.RollAwaitingRandomness))
}

// ListRolls devuelve todos los rolls vivos.
func (t *sqlTx) ListRolls(ctx context.Context) ([]domain.Roll, error) {
	return t.queryRolls(ctx, `SELECT `+rollColumns+` FROM rolls ORDER BY id`)
}

func (t *sqlTx) queryRolls(ctx context.Context, query string, args ...any) ([]domain.Roll, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryRolls: %w", err)
	}
	defer rows.Close()

	var rolls []domain.Roll
	for rows.Next() {
		r, err := scanRoll(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.queryRolls: scan row: %w", err)
		}
		rolls = append(rolls, r)
	}
	return rolls, rows.Err()
}

// ─── Bets ────────────────────────────────────────────────────────────────────

// InsertBet asigna id = max(id)+1 dentro del roll.
func (t *sqlTx) InsertBet(ctx context.Context, b domain.Bet) (uint64, error) {
	var next int64
	if err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id) + 1, 0) FROM bets WHERE roll_id=?`, u64(b.RollID),
	).Scan(&next); err != nil {
		return 0, fmt.Errorf("storage.InsertBet: next id: %w", err)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bets (roll_id, id, bettor, stake, lower, upper, multiplier, seed)
		VALUES (?,?,?,?,?,?,?,?)`,
		u64(b.RollID), next, string(b.Bettor), b.Stake, b.Lower, b.Upper, b.Multiplier, u64(b.Seed),
	)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertBet: %w", err)
	}
	return uint64(next), nil
}

// BetsForRoll devuelve las bets en orden de registro.
func (t *sqlTx) BetsForRoll(ctx context.Context, rollID uint64) ([]domain.Bet, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT roll_id, id, bettor, stake, lower, upper, multiplier, seed
		FROM bets WHERE roll_id=? ORDER BY id`, u64(rollID))
	if err != nil {
		return nil, fmt.Errorf("storage.BetsForRoll: query: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var rid, id, seed int64
		var bettor string
		if err := rows.Scan(&rid, &id, &bettor, &b.Stake, &b.Lower, &b.Upper, &b.Multiplier, &seed); err != nil {
			return nil, fmt.Errorf("storage.BetsForRoll: scan row: %w", err)
		}
		b.RollID, b.ID, b.Seed = uint64(rid), uint64(id), uint64(seed)
		b.Bettor = domain.Account(bettor)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// DeleteBets borra todas las bets de un roll.
func (t *sqlTx) DeleteBets(ctx context.Context, rollID uint64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM bets WHERE roll_id=?`, u64(rollID)); err != nil {
		return fmt.Errorf("storage.DeleteBets: %w", err)
	}
	return nil
}

// --- helpers internos ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoll(row rowScanner) (domain.Roll, error) {
	var r domain.Roll
	var id, creatorID, signingValue int64
	var creator, rakeRecipient, state string
	var lockedAt sql.NullTime

	err := row.Scan(
		&id, &creator, &creatorID, &r.MaxResult, &rakeRecipient, &state, &r.TotalStake, &r.BetCount,
		&r.Collected, &r.Rake, &r.Fee, &r.MaxLoss, &r.RequiredCapital, &signingValue, &r.CreatedAt, &lockedAt,
	)
	if err != nil {
		return domain.Roll{}, err
	}
	r.ID, r.CreatorID, r.SigningValue = uint64(id), uint64(creatorID), uint64(signingValue)
	r.Creator = domain.Account(creator)
	r.RakeRecipient = domain.Account(rakeRecipient)
	r.State = domain.RollState(state)
	if lockedAt.Valid {
		t := lockedAt.Time
		r.LockedAt = &t
	}
	return r, nil
}

func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY")
}
