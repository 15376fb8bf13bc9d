// internal/repository/sqlite/stats_sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guildbank/internal/domain"
	"guildbank/internal/repository"
	"guildbank/internal/util"
)

const statsColumns = `user_id, currency, total_earned, total_spent, tx_count, first_tx_at, updated_at`

// StatsRepository implements repository.StatsRepository for SQLite.
type StatsRepository struct{}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository() repository.StatsRepository {
	return &StatsRepository{}
}

// GetStats retrieves the running totals for a user/currency.
func (r *StatsRepository) GetStats(ctx context.Context, q repository.DBExecutor, userID int64, currency domain.Currency) (*domain.UserStats, error) {
	var stats domain.UserStats
	query := fmt.Sprintf(`SELECT %s FROM user_stats WHERE user_id = ? AND currency = ?`, statsColumns)
	if err := q.GetContext(ctx, &stats, query, userID, currency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stats for user %d: %w", userID, err)
	}
	return &stats, nil
}

// UpsertStats writes the full stats row. The service computes totals in Go
// inside the exclusive transaction, so a whole-row upsert is race-free.
func (r *StatsRepository) UpsertStats(ctx context.Context, q repository.DBExecutor, stats *domain.UserStats) error {
	query := `INSERT INTO user_stats
		(user_id, currency, total_earned, total_spent, tx_count, first_tx_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, currency) DO UPDATE SET
			total_earned = excluded.total_earned,
			total_spent  = excluded.total_spent,
			tx_count     = excluded.tx_count,
			first_tx_at  = excluded.first_tx_at,
			updated_at   = excluded.updated_at`

	if _, err := q.ExecContext(ctx, query,
		stats.UserID,
		stats.Currency,
		stats.TotalEarned,
		stats.TotalSpent,
		stats.TxCount,
		stats.FirstTxAt,
		stats.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert stats for user %d: %w", stats.UserID, err)
	}
	return nil
}

// TopByDirection ranks users by lifetime earned or spent totals.
func (r *StatsRepository) TopByDirection(ctx context.Context, q repository.DBExecutor, direction domain.Direction, currency domain.Currency, guildID *int64, limit int) ([]domain.UserStats, error) {
	orderColumn := "total_earned"
	if direction == domain.DirectionSpent {
		orderColumn = "total_spent"
	}

	clauses := "currency = ?"
	args := []interface{}{currency}
	if guildID != nil {
		// Stats are lifetime totals keyed by user+currency; guild scoping is
		// resolved against the entry log instead of fragmenting the totals.
		clauses += ` AND EXISTS (SELECT 1 FROM ledger_entries le
			WHERE le.user_id = user_stats.user_id AND le.guild_id = ?)`
		args = append(args, *guildID)
	}

	query := fmt.Sprintf(`SELECT %s FROM user_stats WHERE %s
		ORDER BY %s DESC, user_id ASC LIMIT ?`, statsColumns, clauses, orderColumn)
	args = append(args, limit)

	rows := []domain.UserStats{}
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to rank users by %s: %w", direction, err)
	}
	return rows, nil
}
