package models

import "github.com/shopspring/decimal"

// Account represents a customer account held in the ledger.
// Balances are mutated only through ledger operations, never directly.
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}
