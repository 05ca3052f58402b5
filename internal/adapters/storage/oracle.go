package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// LoadOracleConfig lee el singleton del oráculo.
func (t *sqlTx) LoadOracleConfig(ctx context.Context) (domain.OracleConfig, error) {
	var c domain.OracleConfig
	var paused int
	var jobID int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT pub_key, paused, current_job_id FROM oracle_config WHERE id=1`,
	).Scan(&c.PubKey, &paused, &jobID)
	if err != nil {
		return domain.OracleConfig{}, fmt.Errorf("storage.LoadOracleConfig: %w", err)
	}
	c.Paused = paused == 1
	c.CurrentJobID = uint64(jobID)
	return c, nil
}

// SaveOracleConfig sobrescribe el singleton del oráculo.
func (t *sqlTx) SaveOracleConfig(ctx context.Context, c domain.OracleConfig) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE oracle_config SET pub_key=?, paused=?, current_job_id=? WHERE id=1`,
		c.PubKey, boolToInt(c.Paused), u64(c.CurrentJobID))
	if err != nil {
		return fmt.Errorf("storage.SaveOracleConfig: %w", err)
	}
	return nil
}

// InsertJob abre un job.
func (t *sqlTx) InsertJob(ctx context.Context, j domain.RandomJob) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO oracle_jobs (id, caller, assoc_id, signing_value, signing_hash)
		VALUES (?,?,?,?,?)`,
		u64(j.ID), string(j.Caller), u64(j.AssocID), u64(j.SigningValue), j.SigningHash[:])
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Statef("job %d already exists", j.ID)
		}
		return fmt.Errorf("storage.InsertJob: %w", err)
	}
	return nil
}

// GetJob busca un job abierto.
func (t *sqlTx) GetJob(ctx context.Context, id uint64) (domain.RandomJob, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, caller, assoc_id, signing_value, signing_hash
		FROM oracle_jobs WHERE id=?`, u64(id))
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RandomJob{}, domain.NotFoundf("no job with id %d exists", id)
	}
	if err != nil {
		return domain.RandomJob{}, fmt.Errorf("storage.GetJob: %w", err)
	}
	return j, nil
}

// DeleteJob cierra un job.
func (t *sqlTx) DeleteJob(ctx context.Context, id uint64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM oracle_jobs WHERE id=?`, u64(id))
	if err != nil {
		return fmt.Errorf("storage.DeleteJob: %w", err)
	}
	return mustAffect(res, domain.NotFoundf("no job with id %d exists", id))
}

// OpenJobs devuelve los jobs abiertos por id.
func (t *sqlTx) OpenJobs(ctx context.Context) ([]domain.RandomJob, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, caller, assoc_id, signing_value, signing_hash
		FROM oracle_jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenJobs: query: %w", err)
	}
	defer rows.Close()

	var jobs []domain.RandomJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.OpenJobs: scan row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkValueUsed añade un signing value al conjunto de usados.
func (t *sqlTx) MarkValueUsed(ctx context.Context, value uint64) error {
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO used_values (value) VALUES (?)`, u64(value)); err != nil {
		if isUniqueViolation(err) {
			return domain.Statef("signing value already used")
		}
		return fmt.Errorf("storage.MarkValueUsed: %w", err)
	}
	return nil
}

// ValueUsed indica si el signing value ya se envió alguna vez.
func (t *sqlTx) ValueUsed(ctx context.Context, value uint64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM used_values WHERE value=?`, u64(value)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.ValueUsed: %w", err)
	}
	return n > 0, nil
}

func scanJob(row rowScanner) (domain.RandomJob, error) {
	var j domain.RandomJob
	var id, assocID, value int64
	var caller string
	var hash []byte
	if err := row.Scan(&id, &caller, &assocID, &value, &hash); err != nil {
		return domain.RandomJob{}, err
	}
	if len(hash) != len(j.SigningHash) {
		return domain.RandomJob{}, fmt.Errorf("job %d: signing hash has %d bytes", id, len(hash))
	}
	j.ID, j.AssocID, j.SigningValue = uint64(id), uint64(assocID), uint64(value)
	j.Caller = domain.Account(caller)
	copy(j.SigningHash[:], hash)
	return j, nil
}
