package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

const deliveryColumns = `id, roll_id, bet_id, bettor, amount, status, attempts, last_error, created_at, updated_at`

// EnqueueDelivery programa una entrega. El id debe ser único por bet.
func (t *sqlTx) EnqueueDelivery(ctx context.Context, d domain.Delivery) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		d.ID, u64(d.RollID), u64(d.BetID), string(d.Bettor), d.Amount, string(d.Status),
		d.Attempts, d.LastError, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Statef("delivery %s already scheduled", d.ID)
		}
		return fmt.Errorf("storage.EnqueueDelivery: %w", err)
	}
	return nil
}

// GetDelivery busca una entrega por id.
func (t *sqlTx) GetDelivery(ctx context.Context, id string) (domain.Delivery, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id=?`, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Delivery{}, domain.NotFoundf("delivery %s not found", id)
	}
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("storage.GetDelivery: %w", err)
	}
	return d, nil
}

// PendingDeliveries devuelve hasta limit entregas pendientes, las más antiguas primero.
func (t *sqlTx) PendingDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+deliveryColumns+` FROM deliveries
		WHERE status=? ORDER BY created_at, id LIMIT ?`,
		string(domain.DeliveryPending), limit)
	if err != nil {
		return nil, fmt.Errorf("storage.PendingDeliveries: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.PendingDeliveries: scan row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDelivery guarda estado, intentos y último error.
func (t *sqlTx) UpdateDelivery(ctx context.Context, d domain.Delivery) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE deliveries SET status=?, attempts=?, last_error=?, updated_at=? WHERE id=?`,
		string(d.Status), d.Attempts, d.LastError, d.UpdatedAt.UTC(), d.ID)
	if err != nil {
		return fmt.Errorf("storage.UpdateDelivery: %w", err)
	}
	return mustAffect(res, domain.NotFoundf("delivery %s not found", d.ID))
}

func scanDelivery(row rowScanner) (domain.Delivery, error) {
	var d domain.Delivery
	var rollID, betID int64
	var bettor, status string
	err := row.Scan(&d.ID, &rollID, &betID, &bettor, &d.Amount, &status,
		&d.Attempts, &d.LastError, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Delivery{}, err
	}
	d.RollID, d.BetID = uint64(rollID), uint64(betID)
	d.Bettor = domain.Account(bettor)
	d.Status = domain.DeliveryStatus(status)
	return d, nil
}
