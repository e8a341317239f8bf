package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryDeposit    EntryKind = "deposit"
	EntryWithdrawal EntryKind = "withdrawal"
	EntryMonthEnd   EntryKind = "month_end_adjustment"
)

// Entry is a single immutable record in an account's ledger. A positive
// amount credits the balance, a negative amount debits it. Entries are
// appended exactly once per balance-affecting operation and never change.
type Entry struct {
	Kind      EntryKind       `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Note      string          `json:"note,omitempty"`
}
