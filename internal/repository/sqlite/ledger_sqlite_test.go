// internal/repository/sqlite/ledger_sqlite_test.go
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildbank/internal/domain"
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

func TestHistoryWhereBuildsClauses(t *testing.T) {
	where, args := historyWhere(1, domain.HistoryFilter{})
	assert.Equal(t, "user_id = ?", where)
	assert.Equal(t, []interface{}{int64(1)}, args)

	coins := domain.CurrencyCoins
	spend := domain.KindSpend
	category := "shop"
	lo := int64(-100)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args = historyWhere(1, domain.HistoryFilter{
		Currency:  &coins,
		Kind:      &spend,
		Category:  &category,
		MinAmount: &lo,
		Since:     &since,
	})
	assert.Equal(t,
		"user_id = ? AND currency = ? AND kind = ? AND category = ? AND amount >= ? AND created_at >= ?",
		where)
	assert.Len(t, args, 6)
}

func TestInsertEntryRoundTrip(t *testing.T) {
	database := newTestDB(t)
	repo := NewLedgerRepository()
	ctx := context.Background()

	guild := int64(42)
	category := "shop"
	entry := &domain.LedgerEntry{
		UserID:        1,
		GuildID:       &guild,
		Currency:      domain.CurrencyCoins,
		Amount:        -25,
		BalanceBefore: 100,
		BalanceAfter:  75,
		Kind:          domain.KindPurchase,
		Category:      &category,
		Metadata:      domain.Metadata{"item": "sword", "rarity": "epic"},
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.InsertEntry(ctx, database, entry))
	assert.Positive(t, entry.ID, "store assigns a monotonic ID")

	got, err := repo.GetHistory(ctx, database, 1, domain.HistoryFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.ID, got[0].ID)
	assert.Equal(t, int64(-25), got[0].Amount)
	require.NotNil(t, got[0].GuildID)
	assert.Equal(t, guild, *got[0].GuildID)
	assert.Equal(t, domain.Metadata{"item": "sword", "rarity": "epic"}, got[0].Metadata)
}

func TestInsertedIDsAreMonotonic(t *testing.T) {
	database := newTestDB(t)
	repo := NewLedgerRepository()
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		entry := &domain.LedgerEntry{
			UserID:        1,
			Currency:      domain.CurrencyCoins,
			Amount:        1,
			BalanceBefore: int64(i),
			BalanceAfter:  int64(i + 1),
			Kind:          domain.KindEarn,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.InsertEntry(ctx, database, entry))
		assert.Greater(t, entry.ID, last)
		last = entry.ID
	}
}

func TestStatsUpsertAndGet(t *testing.T) {
	database := newTestDB(t)
	repo := NewStatsRepository()
	ctx := context.Background()

	_, err := repo.GetStats(ctx, database, 1, domain.CurrencyCoins)
	assert.ErrorIs(t, err, util.ErrNotFound)

	stats := domain.NewUserStats(1, domain.CurrencyCoins)
	stats.Apply(100, time.Now().UTC())
	require.NoError(t, repo.UpsertStats(ctx, database, stats))

	got, err := repo.GetStats(ctx, database, 1, domain.CurrencyCoins)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.TotalEarned)
	assert.Equal(t, int64(1), got.TxCount)
	require.NotNil(t, got.FirstTxAt)

	// Second upsert overwrites the row in place.
	stats.Apply(-40, time.Now().UTC())
	require.NoError(t, repo.UpsertStats(ctx, database, stats))

	got, err = repo.GetStats(ctx, database, 1, domain.CurrencyCoins)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.TotalSpent)
	assert.Equal(t, int64(2), got.TxCount)
	assert.Equal(t, int64(60), domain.BalanceFromStats(got))
}

func TestDeleteOlderThan(t *testing.T) {
	database := newTestDB(t)
	repo := NewLedgerRepository()
	ctx := context.Background()

	now := time.Now().UTC()
	for i, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		entry := &domain.LedgerEntry{
			UserID:        1,
			Currency:      domain.CurrencyCoins,
			Amount:        1,
			BalanceBefore: int64(i),
			BalanceAfter:  int64(i + 1),
			Kind:          domain.KindEarn,
			CreatedAt:     now.Add(-age),
		}
		require.NoError(t, repo.InsertEntry(ctx, database, entry))
	}

	removed, err := repo.DeleteOlderThan(ctx, database, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	total, err := repo.CountHistory(ctx, database, 1, domain.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
