// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	// ErrStorageBusy means the retry budget was exhausted while the storage
	// engine was locked. The operation was never applied.
	ErrStorageBusy = errors.New("storage busy: retry budget exhausted")
	// ErrInsufficientFunds means a debit would have taken the balance below
	// zero under a non-negative policy. Not retryable.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNestedTransaction means a unit of work tried to open a second
	// exclusive transaction, which would deadlock the single writer.
	ErrNestedTransaction = errors.New("nested exclusive transaction")
	// ErrIntegrityViolation means a balance invariant check failed after an
	// update. It indicates a coordinator bug and aborts the transaction.
	ErrIntegrityViolation = errors.New("ledger integrity violation")
	// ErrQueueClosed means the execution queue no longer accepts submissions.
	ErrQueueClosed = errors.New("execution queue closed")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input provided")
)

// IsError reports whether err matches the given sentinel error.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
