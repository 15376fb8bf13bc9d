// internal/service/ledger_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"guildbank/internal/domain"
	"guildbank/internal/repository"
	"guildbank/internal/util"
	"guildbank/pkg/db"
)

// RecordParams describes one balance-changing operation. Identifiers and
// operation kinds arrive already validated and authorized by the command
// layer; this layer enforces ledger semantics only.
type RecordParams struct {
	UserID      int64
	GuildID     *int64
	Currency    domain.Currency
	Amount      int64 // Signed; positive credits, negative debits
	Kind        domain.TransactionKind
	Category    *string
	ItemRef     *string
	AdminID     *int64
	Description *string
	Metadata    domain.Metadata
	// AllowNegative permits the balance to go below zero (e.g. admin
	// adjustments). When false a debit below zero fails with
	// ErrInsufficientFunds.
	AllowNegative bool
}

// TopOptions narrows a leaderboard query.
type TopOptions struct {
	Currency domain.Currency // Defaults to coins
	GuildID  *int64          // Restrict to users active in this guild
	Limit    int             // Defaults to 10
}

const defaultTopLimit = 10

// LedgerService defines the transactional multi-currency ledger built on the
// execution queue. Balance-changing operations are all-or-nothing; reads
// bypass the coordinator but still flow through the queue, so a write
// committed before a subsequently-submitted read is visible to that read.
type LedgerService interface {
	RecordTransaction(ctx context.Context, params RecordParams) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, userID int64, currency domain.Currency) (int64, error)
	GetHistory(ctx context.Context, userID int64, filter domain.HistoryFilter, limit, offset int) ([]domain.LedgerEntry, int64, error)
	GetTopByDirection(ctx context.Context, direction domain.Direction, opts TopOptions) ([]domain.UserStats, error)
	CleanupOlderThan(ctx context.Context, horizon time.Duration) (int64, error)
	ReplayBalance(ctx context.Context, userID int64, currency domain.Currency) (int64, error)
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	dbExecutor repository.DBExecutor // Shared handle for queue-routed reads
	queue      *db.Queue
	txManager  *db.TransactionManager
	ledgerRepo repository.LedgerRepository
	statsRepo  repository.StatsRepository
	logger     *slog.Logger

	// beforeStatsUpdate, when set, runs between the entry insert and the
	// stats update. Tests use it to prove the two never apply separately.
	beforeStatsUpdate func() error
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbExecutor repository.DBExecutor,
	queue *db.Queue,
	txManager *db.TransactionManager,
	ledgerRepo repository.LedgerRepository,
	statsRepo repository.StatsRepository,
	logger *slog.Logger,
) LedgerService {
	return &ledgerService{
		dbExecutor: dbExecutor,
		queue:      queue,
		txManager:  txManager,
		ledgerRepo: ledgerRepo,
		statsRepo:  statsRepo,
		logger:     logger,
	}
}

// RecordTransaction applies one balance change: read the current balance,
// validate the transition, append the audit entry, and fold the amount into
// the user's running totals, all inside one exclusive transaction. Nothing is
// observable outside the transaction until commit.
func (s *ledgerService) RecordTransaction(ctx context.Context, params RecordParams) (*domain.LedgerEntry, error) {
	if !params.Currency.Valid() {
		return nil, fmt.Errorf("%w: unknown currency %q", util.ErrInvalidInput, params.Currency)
	}
	if !params.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction kind %q", util.ErrInvalidInput, params.Kind)
	}
	if params.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", util.ErrInvalidInput)
	}

	var entry *domain.LedgerEntry
	err := s.txManager.RunExclusive(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		stats, err := s.statsRepo.GetStats(ctx, tx, params.UserID, params.Currency)
		if errors.Is(err, util.ErrNotFound) {
			stats = domain.NewUserStats(params.UserID, params.Currency)
		} else if err != nil {
			return fmt.Errorf("record: failed to read stats: %w", err)
		}

		balanceBefore := domain.BalanceFromStats(stats)
		balanceAfter := balanceBefore + params.Amount
		if !params.AllowNegative && balanceAfter < 0 {
			return util.ErrInsufficientFunds
		}

		now := time.Now().UTC()
		entry = &domain.LedgerEntry{
			UserID:        params.UserID,
			GuildID:       params.GuildID,
			Currency:      params.Currency,
			Amount:        params.Amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Kind:          params.Kind,
			Category:      params.Category,
			ItemRef:       params.ItemRef,
			AdminID:       params.AdminID,
			Description:   params.Description,
			Metadata:      params.Metadata,
			CreatedAt:     now,
		}
		if err := s.ledgerRepo.InsertEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("record: failed to insert entry: %w", err)
		}

		if s.beforeStatsUpdate != nil {
			if err := s.beforeStatsUpdate(); err != nil {
				return err
			}
		}

		stats.Apply(params.Amount, now)
		if err := s.statsRepo.UpsertStats(ctx, tx, stats); err != nil {
			return fmt.Errorf("record: failed to update stats: %w", err)
		}

		// Re-derive the balance from the just-written totals. Disagreement
		// with the entry means a coordinator bug; abort loudly.
		updated, err := s.statsRepo.GetStats(ctx, tx, params.UserID, params.Currency)
		if err != nil {
			return fmt.Errorf("record: failed to re-read stats: %w", err)
		}
		if got := domain.BalanceFromStats(updated); got != balanceAfter {
			return fmt.Errorf("%w: stats-derived balance %d != balance_after %d for user %d/%s",
				util.ErrIntegrityViolation, got, balanceAfter, params.UserID, params.Currency)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// GetBalance derives the balance from the cached totals, O(1). A user with no
// transactions has balance zero.
func (s *ledgerService) GetBalance(ctx context.Context, userID int64, currency domain.Currency) (int64, error) {
	if !currency.Valid() {
		return 0, fmt.Errorf("%w: unknown currency %q", util.ErrInvalidInput, currency)
	}

	var balance int64
	err := s.queue.Submit(ctx, func(ctx context.Context) error {
		stats, err := s.statsRepo.GetStats(ctx, s.dbExecutor, userID, currency)
		if errors.Is(err, util.ErrNotFound) {
			balance = 0
			return nil
		}
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		balance = domain.BalanceFromStats(stats)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// GetHistory retrieves a filtered page of a user's entries, newest first,
// plus the total number of matching entries.
func (s *ledgerService) GetHistory(ctx context.Context, userID int64, filter domain.HistoryFilter, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	if limit <= 0 || offset < 0 {
		return nil, 0, fmt.Errorf("%w: limit must be positive and offset non-negative", util.ErrInvalidInput)
	}

	var (
		entries []domain.LedgerEntry
		total   int64
	)
	err := s.queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		entries, err = s.ledgerRepo.GetHistory(ctx, s.dbExecutor, userID, filter, limit, offset)
		if err != nil {
			return fmt.Errorf("get history: %w", err)
		}
		total, err = s.ledgerRepo.CountHistory(ctx, s.dbExecutor, userID, filter)
		if err != nil {
			return fmt.Errorf("get history count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// GetTopByDirection ranks users by lifetime earned or spent totals for one
// currency, ties broken by ascending user ID.
func (s *ledgerService) GetTopByDirection(ctx context.Context, direction domain.Direction, opts TopOptions) ([]domain.UserStats, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", util.ErrInvalidInput, direction)
	}
	if opts.Currency == "" {
		opts.Currency = domain.CurrencyCoins
	}
	if !opts.Currency.Valid() {
		return nil, fmt.Errorf("%w: unknown currency %q", util.ErrInvalidInput, opts.Currency)
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultTopLimit
	}

	var rows []domain.UserStats
	err := s.queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.statsRepo.TopByDirection(ctx, s.dbExecutor, direction, opts.Currency, opts.GuildID, opts.Limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CleanupOlderThan irreversibly removes entries older than the horizon.
// Statistics rows are left untouched so lifetime totals survive log pruning.
func (s *ledgerService) CleanupOlderThan(ctx context.Context, horizon time.Duration) (int64, error) {
	if horizon <= 0 {
		return 0, fmt.Errorf("%w: retention horizon must be positive", util.ErrInvalidInput)
	}

	cutoff := time.Now().UTC().Add(-horizon)
	var removed int64
	err := s.txManager.RunExclusive(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		removed, err = s.ledgerRepo.DeleteOlderThan(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("retention cleanup completed", "cutoff", cutoff, "removed", removed)
	return removed, nil
}

// ReplayBalance recomputes a balance by folding the user's retained entries
// in commit order, verifying the balance chain along the way. It is a
// consistency-check tool, not the read path; GetBalance serves reads.
func (s *ledgerService) ReplayBalance(ctx context.Context, userID int64, currency domain.Currency) (int64, error) {
	if !currency.Valid() {
		return 0, fmt.Errorf("%w: unknown currency %q", util.ErrInvalidInput, currency)
	}

	var balance int64
	err := s.queue.Submit(ctx, func(ctx context.Context) error {
		entries, err := s.ledgerRepo.GetEntriesAscending(ctx, s.dbExecutor, userID, currency)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		balance, err = domain.ReplayEntries(entries)
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrIntegrityViolation, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
