// internal/domain/entry.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Currency identifies one of the community's fixed denominations.
// Cross-denomination rates are defined by callers, not by this layer.
type Currency string

const (
	CurrencyCoins  Currency = "coins"  // primary denomination
	CurrencyGems   Currency = "gems"   // secondary
	CurrencyTokens Currency = "tokens" // tertiary
	CurrencyShards Currency = "shards" // quaternary
)

// Currencies lists every known denomination.
var Currencies = []Currency{CurrencyCoins, CurrencyGems, CurrencyTokens, CurrencyShards}

// Valid reports whether c is a known denomination.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyCoins, CurrencyGems, CurrencyTokens, CurrencyShards:
		return true
	}
	return false
}

// TransactionKind defines the kind of a balance-changing event.
type TransactionKind string

const (
	KindEarn        TransactionKind = "earn"
	KindSpend       TransactionKind = "spend"
	KindPurchase    TransactionKind = "purchase"
	KindRefund      TransactionKind = "refund"
	KindTransfer    TransactionKind = "transfer"
	KindAdminAdjust TransactionKind = "admin_adjust"
	KindDailyBonus  TransactionKind = "daily_bonus"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindEarn, KindSpend, KindPurchase, KindRefund, KindTransfer, KindAdminAdjust, KindDailyBonus:
		return true
	}
	return false
}

// Metadata holds opaque key/value pairs attached to an entry.
// It is persisted as a JSON text column.
type Metadata map[string]string

// Value implements driver.Valuer, serializing the map to JSON.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner, deserializing a JSON text column.
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan metadata from %T", src)
	}
}

// LedgerEntry is one immutable record of a balance-changing event.
// Amounts are signed integer minor units; BalanceAfter must always equal
// BalanceBefore + Amount.
type LedgerEntry struct {
	ID            int64           `db:"id" json:"id"`                         // Primary key, monotonic, assigned by the store
	UserID        int64           `db:"user_id" json:"user_id"`               // Community member the entry belongs to
	GuildID       *int64          `db:"guild_id" json:"guild_id"`             // Optional guild the event happened in
	Currency      Currency        `db:"currency" json:"currency"`             // Denomination
	Amount        int64           `db:"amount" json:"amount"`                 // Signed delta in minor units
	BalanceBefore int64           `db:"balance_before" json:"balance_before"` // Balance prior to the event
	BalanceAfter  int64           `db:"balance_after" json:"balance_after"`   // Balance after the event
	Kind          TransactionKind `db:"kind" json:"kind"`                     // Kind of event
	Category      *string         `db:"category" json:"category"`             // Optional category (e.g. "shop", "games")
	ItemRef       *string         `db:"item_ref" json:"item_ref"`             // Optional reference to a shop item
	AdminID       *int64          `db:"admin_id" json:"admin_id"`             // Acting admin for admin_adjust entries
	Description   *string         `db:"description" json:"description"`       // Optional free-form description
	Metadata      Metadata        `db:"metadata_json" json:"metadata"`        // Opaque key/value pairs
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`         // Timestamp of the commit
}

// HistoryFilter narrows a history query. Nil fields are ignored.
type HistoryFilter struct {
	Currency  *Currency
	Kind      *TransactionKind
	Category  *string
	GuildID   *int64
	AdminID   *int64
	MinAmount *int64
	MaxAmount *int64
	Since     *time.Time
	Until     *time.Time
}
