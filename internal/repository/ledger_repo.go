// internal/repository/ledger_repo.go
package repository

import (
	"context"
	"time"

	"guildbank/internal/domain"
)

// CategorySum is a grouped total for one spend/earn category.
type CategorySum struct {
	Category string `db:"category" json:"category"`
	Total    int64  `db:"total" json:"total"`
	Count    int64  `db:"count" json:"count"`
}

// LedgerRepository defines the data operations on the append-only entry log.
// Entries are inserted only from inside an exclusive transaction and are
// never updated; DeleteOlderThan is the single, irreversible exception.
type LedgerRepository interface {
	// InsertEntry appends a new entry and assigns its monotonic ID.
	InsertEntry(ctx context.Context, q DBExecutor, entry *domain.LedgerEntry) error
	// GetHistory retrieves a user's entries, newest first (created_at DESC,
	// ties broken by id DESC), narrowed by filter.
	GetHistory(ctx context.Context, q DBExecutor, userID int64, filter domain.HistoryFilter, limit, offset int) ([]domain.LedgerEntry, error)
	// CountHistory returns the total number of entries GetHistory would match.
	CountHistory(ctx context.Context, q DBExecutor, userID int64, filter domain.HistoryFilter) (int64, error)
	// GetEntriesAscending returns all of a user's entries for one currency in
	// commit order (created_at ASC, id ASC), for balance replay.
	GetEntriesAscending(ctx context.Context, q DBExecutor, userID int64, currency domain.Currency) ([]domain.LedgerEntry, error)
	// RecentEntries returns the newest entries across all users, optionally
	// restricted to one guild.
	RecentEntries(ctx context.Context, q DBExecutor, guildID *int64, limit int) ([]domain.LedgerEntry, error)
	// SumByCategory groups a user's entries for one currency by category,
	// summing earned or spent amounts per the direction.
	SumByCategory(ctx context.Context, q DBExecutor, userID int64, currency domain.Currency, direction domain.Direction) ([]CategorySum, error)
	// DeleteOlderThan removes entries created before cutoff and returns the
	// number removed. Statistics rows are not touched.
	DeleteOlderThan(ctx context.Context, q DBExecutor, cutoff time.Time) (int64, error)
}
