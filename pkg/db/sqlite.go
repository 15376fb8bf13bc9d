// pkg/db/sqlite.go
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Config holds storage engine configuration. All knobs are explicit inputs;
// nothing here silently changes between deployments.
type Config struct {
	Path           string        // Database file path, or ":memory:" for tests
	BusyTimeout    time.Duration // Engine-level wait on a held write lock
	MaxRetries     int           // Attempts per queued operation
	BaseRetryDelay time.Duration // First retry delay; doubles per attempt
}

// NewSQLiteDB opens the single shared database handle.
//
// WAL journaling with NORMAL synchronous commits is a deliberate
// durability-for-performance tradeoff: a crash may lose the last few commits
// but never corrupts committed state. _txlock=immediate makes every
// transaction acquire the write lock up front, so lock failures happen at
// BEGIN and get retried by the execution queue instead of deadlocking
// mid-transaction.
func NewSQLiteDB(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d&_txlock=immediate&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The execution queue owns the only handle; a second writable connection
	// would break the single-writer discipline (and, for ":memory:", would
	// open a different database entirely).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}

// Migrate creates the ledger schema.
func Migrate(db *sqlx.DB) error {
	schema := `
	-- Ledger entries (append-only audit trail)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        INTEGER NOT NULL,
		guild_id       INTEGER,
		currency       TEXT NOT NULL,
		amount         INTEGER NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after  INTEGER NOT NULL,
		kind           TEXT NOT NULL,
		category       TEXT,
		item_ref       TEXT,
		admin_id       INTEGER,
		description    TEXT,
		metadata_json  TEXT,
		created_at     TIMESTAMP NOT NULL
	);

	-- Composite index for paginated per-user history (hot path)
	CREATE INDEX IF NOT EXISTS idx_ledger_user_created
		ON ledger_entries(user_id, created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_ledger_created
		ON ledger_entries(created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_guild_created
		ON ledger_entries(guild_id, created_at DESC)
		WHERE guild_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_ledger_category
		ON ledger_entries(category) WHERE category IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_ledger_admin
		ON ledger_entries(admin_id) WHERE admin_id IS NOT NULL;

	-- Per-user running totals, updated in the same transaction as the entry
	CREATE TABLE IF NOT EXISTS user_stats (
		user_id      INTEGER NOT NULL,
		currency     TEXT NOT NULL,
		total_earned INTEGER NOT NULL DEFAULT 0,
		total_spent  INTEGER NOT NULL DEFAULT 0,
		tx_count     INTEGER NOT NULL DEFAULT 0,
		first_tx_at  TIMESTAMP,
		updated_at   TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, currency)
	);

	CREATE INDEX IF NOT EXISTS idx_stats_earned
		ON user_stats(currency, total_earned DESC);
	CREATE INDEX IF NOT EXISTS idx_stats_spent
		ON user_stats(currency, total_spent DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// IsBusy reports whether err is the engine's busy/locked signal: another
// writer holds the lock and the operation may succeed if retried. No other
// error class is retryable.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
