// internal/repository/stats_repo.go
package repository

import (
	"context"

	"guildbank/internal/domain"
)

// StatsRepository defines the data operations on per-user running totals.
type StatsRepository interface {
	// GetStats retrieves the stats row for a user/currency, or util.ErrNotFound
	// if the user has no transactions yet.
	GetStats(ctx context.Context, q DBExecutor, userID int64, currency domain.Currency) (*domain.UserStats, error)
	// UpsertStats writes the full stats row, creating it on first use.
	UpsertStats(ctx context.Context, q DBExecutor, stats *domain.UserStats) error
	// TopByDirection returns stats rows ranked by total earned or spent for
	// one currency, ties broken by ascending user ID. A non-nil guildID
	// restricts the ranking to users with ledger activity in that guild.
	TopByDirection(ctx context.Context, q DBExecutor, direction domain.Direction, currency domain.Currency, guildID *int64, limit int) ([]domain.UserStats, error)
}
