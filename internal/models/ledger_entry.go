package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry represents a single ledger record for an account.
// Entries are append-only; corrections are expressed as new entries.
type LedgerEntry struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"` // negative = debit, positive = credit
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
