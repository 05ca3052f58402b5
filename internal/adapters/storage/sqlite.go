package storage

// sqlite.go: estado persistente del exchange y del oráculo en una sola DB.
//
// Estrategia:
//   - Una conexión (SQLite es single-writer): cada Atomic es una transacción
//     y las transacciones quedan serializadas en el orden en que llegan.
//   - Singletons (`pool`, `oracle_config`) con id fijo = 1.
//   - Los uint64 que pueden usar el bit alto (signing values, semillas,
//     creator_id) se guardan como INTEGER reinterpretando los bits.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/bankroll/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool (
    id              INTEGER PRIMARY KEY DEFAULT 1,
    capital         INTEGER NOT NULL DEFAULT 0,
    total_weight    INTEGER NOT NULL DEFAULT 0,
    current_roll_id INTEGER NOT NULL DEFAULT 0,
    paused          INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO pool (id) VALUES (1);

CREATE TABLE IF NOT EXISTS rolls (
    id               INTEGER PRIMARY KEY,
    creator          TEXT    NOT NULL,
    creator_id       INTEGER NOT NULL,
    creator_key      TEXT    NOT NULL UNIQUE,
    max_result       INTEGER NOT NULL,
    rake_recipient   TEXT    NOT NULL,
    state            TEXT    NOT NULL,
    total_stake      INTEGER NOT NULL DEFAULT 0,
    bet_count        INTEGER NOT NULL DEFAULT 0,
    collected        INTEGER NOT NULL DEFAULT 0,
    rake             INTEGER NOT NULL DEFAULT 0,
    fee              INTEGER NOT NULL DEFAULT 0,
    max_loss         INTEGER NOT NULL DEFAULT 0,
    required_capital INTEGER NOT NULL DEFAULT 0,
    signing_value    INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL,
    locked_at        DATETIME
);
CREATE INDEX IF NOT EXISTS idx_rolls_state ON rolls(state);

CREATE TABLE IF NOT EXISTS bets (
    roll_id    INTEGER NOT NULL,
    id         INTEGER NOT NULL,
    bettor     TEXT    NOT NULL,
    stake      INTEGER NOT NULL,
    lower      INTEGER NOT NULL,
    upper      INTEGER NOT NULL,
    multiplier INTEGER NOT NULL,
    seed       INTEGER NOT NULL,
    PRIMARY KEY (roll_id, id)
);

CREATE TABLE IF NOT EXISTS investors (
    account TEXT PRIMARY KEY,
    weight  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payouts (
    bettor TEXT PRIMARY KEY,
    amount INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deliveries (
    id         TEXT PRIMARY KEY,
    roll_id    INTEGER NOT NULL,
    bet_id     INTEGER NOT NULL,
    bettor     TEXT    NOT NULL,
    amount     INTEGER NOT NULL,
    status     TEXT    NOT NULL,
    attempts   INTEGER NOT NULL DEFAULT 0,
    last_error TEXT    NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status, created_at);

CREATE TABLE IF NOT EXISTS oracle_config (
    id             INTEGER PRIMARY KEY DEFAULT 1,
    pub_key        BLOB,
    paused         INTEGER NOT NULL DEFAULT 0,
    current_job_id INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO oracle_config (id) VALUES (1);

CREATE TABLE IF NOT EXISTS oracle_jobs (
    id            INTEGER PRIMARY KEY,
    caller        TEXT    NOT NULL,
    assoc_id      INTEGER NOT NULL,
    signing_value INTEGER NOT NULL,
    signing_hash  BLOB    NOT NULL
);

-- Append-only: un signing value nunca se reutiliza.
CREATE TABLE IF NOT EXISTS used_values (
    value INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS balances (
    account TEXT    NOT NULL,
    code    TEXT    NOT NULL,
    amount  INTEGER NOT NULL,
    PRIMARY KEY (account, code)
);

CREATE TABLE IF NOT EXISTS supply (
    code   TEXT PRIMARY KEY,
    amount INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS frozen (
    account TEXT PRIMARY KEY
);
`

// SQLiteStorage implementa ports.Store usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Atomic ejecuta fn en una transacción. Los errores de fn se devuelven tal
// cual para no ocultar su tipo; los de infraestructura se envuelven.
func (s *SQLiteStorage) Atomic(ctx context.Context, fn func(tx ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Atomic: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Atomic: commit: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sqlTx implementa ports.Tx sobre una transacción abierta.
type sqlTx struct {
	tx *sql.Tx
}

var _ ports.Tx = (*sqlTx)(nil)

// --- helpers internos ---

// u64 guarda un uint64 en una columna INTEGER conservando los 64 bits.
func u64(v uint64) int64 { return int64(v) }

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
