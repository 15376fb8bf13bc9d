// internal/domain/balance.go
package domain

import "fmt"

// BalanceFromStats derives a balance from the cached running totals.
func BalanceFromStats(s *UserStats) int64 {
	if s == nil {
		return 0
	}
	return s.TotalEarned - s.TotalSpent
}

// ReplayEntries folds a user's entries, ordered oldest first, into a final
// balance. It verifies the balance chain as it goes: every entry must satisfy
// balance_after = balance_before + amount, and each entry's balance_before
// must equal the previous entry's balance_after. A correct store produces the
// same value here as BalanceFromStats; disagreement means corruption.
func ReplayEntries(entries []LedgerEntry) (int64, error) {
	var balance int64
	for i, e := range entries {
		if e.BalanceAfter != e.BalanceBefore+e.Amount {
			return 0, fmt.Errorf("entry %d: balance_after %d != balance_before %d + amount %d",
				e.ID, e.BalanceAfter, e.BalanceBefore, e.Amount)
		}
		if i > 0 && e.BalanceBefore != entries[i-1].BalanceAfter {
			return 0, fmt.Errorf("entry %d: balance_before %d does not continue from entry %d balance_after %d",
				e.ID, e.BalanceBefore, entries[i-1].ID, entries[i-1].BalanceAfter)
		}
		balance = e.BalanceAfter
	}
	return balance, nil
}
