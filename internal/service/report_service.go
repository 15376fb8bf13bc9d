// internal/service/report_service.go
package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"guildbank/internal/domain"
	"guildbank/internal/repository"
	"guildbank/internal/util"
	"guildbank/pkg/db"
)

// HistoryPage is one page of a user's transaction history.
type HistoryPage struct {
	Entries    []domain.LedgerEntry `json:"entries"`
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`       // 1-based
	PageSize   int                  `json:"page_size"`
	PageCount  int                  `json:"page_count"` // ceil(total/pageSize)
}

// CategoryShare is one category's slice of a user's earned or spent total.
type CategoryShare struct {
	Category string          `json:"category"`
	Total    int64           `json:"total"`
	Count    int64           `json:"count"`
	Percent  decimal.Decimal `json:"percent"` // Of the grand total, 2dp
}

// LeaderboardRow is one ranked entry of a leaderboard.
type LeaderboardRow struct {
	Rank  int              `json:"rank"` // 1-based
	Stats domain.UserStats `json:"stats"`
}

// ReportService is the read-side facade composed from the ledger store:
// paginated history, category breakdowns, activity feeds, and leaderboards.
// All methods are pure reads through the execution queue; none open a
// transaction.
type ReportService interface {
	HistoryPage(ctx context.Context, userID int64, filter domain.HistoryFilter, page, pageSize int) (*HistoryPage, error)
	CategoryBreakdown(ctx context.Context, userID int64, currency domain.Currency, direction domain.Direction) ([]CategoryShare, error)
	RecentActivity(ctx context.Context, guildID *int64, limit int) ([]domain.LedgerEntry, error)
	Leaderboard(ctx context.Context, direction domain.Direction, opts TopOptions) ([]LeaderboardRow, error)
}

// reportService implements the ReportService interface.
type reportService struct {
	dbExecutor repository.DBExecutor
	queue      *db.Queue
	ledgerRepo repository.LedgerRepository
	ledger     LedgerService
}

// NewReportService creates a new instance of ReportService.
func NewReportService(
	dbExecutor repository.DBExecutor,
	queue *db.Queue,
	ledgerRepo repository.LedgerRepository,
	ledger LedgerService,
) ReportService {
	return &reportService{
		dbExecutor: dbExecutor,
		queue:      queue,
		ledgerRepo: ledgerRepo,
		ledger:     ledger,
	}
}

// HistoryPage returns one 1-based page of a user's history. A page past the
// end returns an empty page with correct counts.
func (s *reportService) HistoryPage(ctx context.Context, userID int64, filter domain.HistoryFilter, page, pageSize int) (*HistoryPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and pageSize must be at least 1", util.ErrInvalidInput)
	}

	offset := (page - 1) * pageSize
	entries, total, err := s.ledger.GetHistory(ctx, userID, filter, pageSize, offset)
	if err != nil {
		return nil, err
	}

	pageCount := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &HistoryPage{
		Entries:    entries,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		PageCount:  pageCount,
	}, nil
}

// CategoryBreakdown groups a user's earned or spent amounts by category with
// each category's exact percentage of the grand total.
func (s *reportService) CategoryBreakdown(ctx context.Context, userID int64, currency domain.Currency, direction domain.Direction) ([]CategoryShare, error) {
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: unknown currency %q", util.ErrInvalidInput, currency)
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", util.ErrInvalidInput, direction)
	}

	var sums []repository.CategorySum
	err := s.queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		sums, err = s.ledgerRepo.SumByCategory(ctx, s.dbExecutor, userID, currency, direction)
		return err
	})
	if err != nil {
		return nil, err
	}

	var grandTotal int64
	for _, sum := range sums {
		grandTotal += sum.Total
	}

	hundred := decimal.NewFromInt(100)
	shares := make([]CategoryShare, 0, len(sums))
	for _, sum := range sums {
		share := CategoryShare{
			Category: sum.Category,
			Total:    sum.Total,
			Count:    sum.Count,
			Percent:  decimal.Zero,
		}
		if grandTotal > 0 {
			share.Percent = decimal.NewFromInt(sum.Total).
				Div(decimal.NewFromInt(grandTotal)).
				Mul(hundred).
				Round(2)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// RecentActivity returns the newest entries server-wide, or for one guild.
func (s *reportService) RecentActivity(ctx context.Context, guildID *int64, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", util.ErrInvalidInput)
	}

	var entries []domain.LedgerEntry
	err := s.queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		entries, err = s.ledgerRepo.RecentEntries(ctx, s.dbExecutor, guildID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Leaderboard wraps GetTopByDirection with 1-based ranks.
func (s *reportService) Leaderboard(ctx context.Context, direction domain.Direction, opts TopOptions) ([]LeaderboardRow, error) {
	stats, err := s.ledger.GetTopByDirection(ctx, direction, opts)
	if err != nil {
		return nil, err
	}

	rows := make([]LeaderboardRow, 0, len(stats))
	for i, st := range stats {
		rows = append(rows, LeaderboardRow{Rank: i + 1, Stats: st})
	}
	return rows, nil
}
