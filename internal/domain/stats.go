// internal/domain/stats.go
package domain

import "time"

// Direction selects which running total a leaderboard ranks by.
type Direction string

const (
	DirectionEarned Direction = "earned"
	DirectionSpent  Direction = "spent"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionEarned || d == DirectionSpent
}

// UserStats is the cached running total for one user and denomination.
// It is updated in the same transaction as the ledger entry that caused the
// change, so it always equals the sum of that user's entries. Rows survive
// retention cleanup: totals are lifetime totals, independent of log pruning.
type UserStats struct {
	UserID      int64      `db:"user_id" json:"user_id"`
	Currency    Currency   `db:"currency" json:"currency"`
	TotalEarned int64      `db:"total_earned" json:"total_earned"` // Sum of positive amounts
	TotalSpent  int64      `db:"total_spent" json:"total_spent"`   // Sum of |negative amounts|
	TxCount     int64      `db:"tx_count" json:"tx_count"`         // Number of ledger entries
	FirstTxAt   *time.Time `db:"first_tx_at" json:"first_tx_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NewUserStats creates a zero-valued statistics row for a user/denomination.
func NewUserStats(userID int64, currency Currency) *UserStats {
	return &UserStats{
		UserID:    userID,
		Currency:  currency,
		UpdatedAt: time.Now().UTC(),
	}
}

// Apply folds one signed amount into the running totals.
func (s *UserStats) Apply(amount int64, at time.Time) {
	if amount >= 0 {
		s.TotalEarned += amount
	} else {
		s.TotalSpent += -amount
	}
	s.TxCount++
	if s.FirstTxAt == nil {
		first := at
		s.FirstTxAt = &first
	}
	s.UpdatedAt = at
}
