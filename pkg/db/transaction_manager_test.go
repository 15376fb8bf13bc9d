// pkg/db/transaction_manager_test.go
package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildbank/internal/util"
	"guildbank/pkg/db"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.NewSQLiteDB(db.Config{Path: ":memory:", BusyTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))
	return database
}

func newTestManager(t *testing.T) (*db.TransactionManager, *db.Queue, *sqlx.DB) {
	t.Helper()
	database := newTestDB(t)
	queue := db.NewQueue(db.QueueConfig{MaxRetries: 3, BaseRetryDelay: time.Millisecond}, testLogger())
	t.Cleanup(queue.Close)
	return db.NewTransactionManager(database, queue, testLogger()), queue, database
}

func countEntries(t *testing.T, database *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM ledger_entries`))
	return n
}

func insertProbeEntry(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ledger_entries
		(user_id, currency, amount, balance_before, balance_after, kind, created_at)
		VALUES (1, 'coins', 10, 0, 10, 'earn', ?)`, time.Now().UTC())
	return err
}

func TestRunExclusiveCommitsOnSuccess(t *testing.T) {
	manager, _, database := newTestManager(t)

	err := manager.RunExclusive(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return insertProbeEntry(ctx, tx)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countEntries(t, database))
}

func TestRunExclusiveRollsBackOnFailure(t *testing.T) {
	manager, _, database := newTestManager(t)

	boom := errors.New("unit of work failed")
	err := manager.RunExclusive(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		if err := insertProbeEntry(ctx, tx); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom, "the original error must not be masked")
	assert.Equal(t, 0, countEntries(t, database), "nothing observable after rollback")
}

func TestRunExclusiveRejectsNesting(t *testing.T) {
	manager, _, _ := newTestManager(t)

	var nestedErr error
	err := manager.RunExclusive(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		nestedErr = manager.RunExclusive(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
			return nil
		})
		return nestedErr
	})

	assert.ErrorIs(t, err, util.ErrNestedTransaction)
	assert.ErrorIs(t, nestedErr, util.ErrNestedTransaction)
}

func TestRunExclusiveRejectsNestedQueueSubmission(t *testing.T) {
	manager, queue, _ := newTestManager(t)

	err := manager.RunExclusive(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return queue.Submit(ctx, func(ctx context.Context) error { return nil })
	})

	assert.ErrorIs(t, err, util.ErrNestedTransaction)
}

func TestWriteThenReadThroughQueue(t *testing.T) {
	manager, queue, database := newTestManager(t)

	require.NoError(t, manager.RunExclusive(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return insertProbeEntry(ctx, tx)
	}))

	// A read submitted after a committed write must observe it.
	var n int
	err := queue.Submit(context.Background(), func(ctx context.Context) error {
		return database.GetContext(ctx, &n, `SELECT COUNT(*) FROM ledger_entries`)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
