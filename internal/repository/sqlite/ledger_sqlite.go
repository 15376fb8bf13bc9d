// internal/repository/sqlite/ledger_sqlite.go
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildbank/internal/domain"
	"guildbank/internal/repository"
)

const entryColumns = `id, user_id, guild_id, currency, amount, balance_before, balance_after,
	kind, category, item_ref, admin_id, description, metadata_json, created_at`

// LedgerRepository implements repository.LedgerRepository for SQLite.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository() repository.LedgerRepository {
	return &LedgerRepository{}
}

// InsertEntry appends a new ledger entry using the provided DBExecutor.
func (r *LedgerRepository) InsertEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries
		(user_id, guild_id, currency, amount, balance_before, balance_after,
		 kind, category, item_ref, admin_id, description, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := q.ExecContext(ctx, query,
		entry.UserID,
		entry.GuildID,
		entry.Currency,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Kind,
		entry.Category,
		entry.ItemRef,
		entry.AdminID,
		entry.Description,
		entry.Metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted entry ID: %w", err)
	}
	entry.ID = id
	return nil
}

// historyWhere builds the WHERE clause for a filtered history query.
func historyWhere(userID int64, f domain.HistoryFilter) (string, []interface{}) {
	clauses := []string{"user_id = ?"}
	args := []interface{}{userID}

	if f.Currency != nil {
		clauses = append(clauses, "currency = ?")
		args = append(args, *f.Currency)
	}
	if f.Kind != nil {
		clauses = append(clauses, "kind = ?")
		args = append(args, *f.Kind)
	}
	if f.Category != nil {
		clauses = append(clauses, "category = ?")
		args = append(args, *f.Category)
	}
	if f.GuildID != nil {
		clauses = append(clauses, "guild_id = ?")
		args = append(args, *f.GuildID)
	}
	if f.AdminID != nil {
		clauses = append(clauses, "admin_id = ?")
		args = append(args, *f.AdminID)
	}
	if f.MinAmount != nil {
		clauses = append(clauses, "amount >= ?")
		args = append(args, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		clauses = append(clauses, "amount <= ?")
		args = append(args, *f.MaxAmount)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, *f.Until)
	}

	return strings.Join(clauses, " AND "), args
}

// GetHistory retrieves a filtered, paginated page of a user's entries,
// newest first with deterministic ID tiebreak.
func (r *LedgerRepository) GetHistory(ctx context.Context, q repository.DBExecutor, userID int64, filter domain.HistoryFilter, limit, offset int) ([]domain.LedgerEntry, error) {
	where, args := historyWhere(userID, filter)
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, entryColumns, where)
	args = append(args, limit, offset)

	entries := []domain.LedgerEntry{}
	if err := q.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch history for user %d: %w", userID, err)
	}
	return entries, nil
}

// CountHistory returns the total number of entries matching the filter.
func (r *LedgerRepository) CountHistory(ctx context.Context, q repository.DBExecutor, userID int64, filter domain.HistoryFilter) (int64, error) {
	where, args := historyWhere(userID, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM ledger_entries WHERE %s`, where)

	var total int64
	if err := q.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count history for user %d: %w", userID, err)
	}
	return total, nil
}

// GetEntriesAscending returns all entries for a user/currency in commit order.
func (r *LedgerRepository) GetEntriesAscending(ctx context.Context, q repository.DBExecutor, userID int64, currency domain.Currency) ([]domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries
		WHERE user_id = ? AND currency = ?
		ORDER BY created_at ASC, id ASC`, entryColumns)

	entries := []domain.LedgerEntry{}
	if err := q.SelectContext(ctx, &entries, query, userID, currency); err != nil {
		return nil, fmt.Errorf("failed to fetch entries for replay of user %d: %w", userID, err)
	}
	return entries, nil
}

// RecentEntries returns the newest entries across all users.
func (r *LedgerRepository) RecentEntries(ctx context.Context, q repository.DBExecutor, guildID *int64, limit int) ([]domain.LedgerEntry, error) {
	var (
		query string
		args  []interface{}
	)
	if guildID != nil {
		query = fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE guild_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?`, entryColumns)
		args = []interface{}{*guildID, limit}
	} else {
		query = fmt.Sprintf(`SELECT %s FROM ledger_entries
			ORDER BY created_at DESC, id DESC LIMIT ?`, entryColumns)
		args = []interface{}{limit}
	}

	entries := []domain.LedgerEntry{}
	if err := q.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch recent entries: %w", err)
	}
	return entries, nil
}

// SumByCategory groups one user's earned or spent amounts by category.
// Entries without a category land in the "uncategorized" bucket.
func (r *LedgerRepository) SumByCategory(ctx context.Context, q repository.DBExecutor, userID int64, currency domain.Currency, direction domain.Direction) ([]repository.CategorySum, error) {
	amountExpr := "SUM(amount)"
	amountCond := "amount > 0"
	if direction == domain.DirectionSpent {
		amountExpr = "SUM(-amount)"
		amountCond = "amount < 0"
	}

	query := fmt.Sprintf(`SELECT COALESCE(category, 'uncategorized') AS category,
			%s AS total, COUNT(*) AS count
		FROM ledger_entries
		WHERE user_id = ? AND currency = ? AND %s
		GROUP BY COALESCE(category, 'uncategorized')
		ORDER BY total DESC, category ASC`, amountExpr, amountCond)

	sums := []repository.CategorySum{}
	if err := q.SelectContext(ctx, &sums, query, userID, currency); err != nil {
		return nil, fmt.Errorf("failed to sum categories for user %d: %w", userID, err)
	}
	return sums, nil
}

// DeleteOlderThan removes entries created before cutoff.
func (r *LedgerRepository) DeleteOlderThan(ctx context.Context, q repository.DBExecutor, cutoff time.Time) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM ledger_entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries older than %s: %w", cutoff, err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected by retention cleanup: %w", err)
	}
	return removed, nil
}
