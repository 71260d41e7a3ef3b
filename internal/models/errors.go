package models

import "errors"

// Sentinel errors returned by the ledger, record store and lifecycle layers.
// Validation errors are returned synchronously from Initiate and never enter
// the asynchronous lifecycle.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAccount    = errors.New("account does not exist")
	ErrInvalidKind       = errors.New("unknown operation kind")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotCancelable       = errors.New("transaction cannot be canceled")

	ErrNotRemediable          = errors.New("transaction is not eligible for remediation")
	ErrRemediationQueryFailed = errors.New("authoritative status query failed")

	// ErrEffectAlreadyApplied guards the at-most-once balance mutation per
	// transaction. Callers hitting it have a logic bug, not a retryable state.
	ErrEffectAlreadyApplied = errors.New("transaction effect already applied to ledger")
)
