// pkg/db/transaction_manager.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"guildbank/internal/util"
)

// DBTxBeginner defines the interface for beginning transactions.
// *sqlx.DB implements this.
type DBTxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// UnitOfWork is a function executed inside one exclusive write transaction.
// It must not call RunExclusive or Queue.Submit itself.
type UnitOfWork func(ctx context.Context, tx *sqlx.Tx) error

// TransactionManager wraps units of work in exclusive write transactions,
// executed as submissions on the execution queue. The connection's
// _txlock=immediate setting means BeginTxx acquires the write lock up front,
// so a contended lock fails fast at BEGIN and is retried by the queue rather
// than deadlocking mid-transaction.
type TransactionManager struct {
	db     DBTxBeginner
	queue  *Queue
	logger *slog.Logger
}

// NewTransactionManager creates a TransactionManager bound to the queue.
func NewTransactionManager(db DBTxBeginner, queue *Queue, logger *slog.Logger) *TransactionManager {
	return &TransactionManager{
		db:     db,
		queue:  queue,
		logger: logger,
	}
}

// RunExclusive executes fn inside one immediate-exclusive transaction.
// On success the transaction commits; on any failure it rolls back and the
// original error propagates. A rollback failure is logged, never returned in
// place of the error that caused it. Calling RunExclusive from inside a unit
// of work returns ErrNestedTransaction.
func (m *TransactionManager) RunExclusive(ctx context.Context, fn UnitOfWork) error {
	if inExclusive(ctx) {
		return util.ErrNestedTransaction
	}

	return m.queue.Submit(ctx, func(ctx context.Context) error {
		tx, err := m.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin exclusive transaction: %w", err)
		}

		if err := fn(markExclusive(ctx), tx); err != nil {
			m.rollback(tx)
			return err
		}

		if err := tx.Commit(); err != nil {
			m.rollback(tx)
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (m *TransactionManager) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		m.logger.Error("failed to roll back transaction", "error", err)
	}
}
