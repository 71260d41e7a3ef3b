package interfaces

import (
	"context"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// TransactionStore is the append-only history of transaction attempts.
// Records are created once, their status and remediation metadata are
// mutable, and only cancelable pending requests/splits may be deleted.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx models.Transaction) error
	GetTransaction(id string) (models.Transaction, error)

	// UpdateStatus sets the displayed status, the authoritative status as
	// far as known, and an optional human-readable reason.
	UpdateStatus(ctx context.Context, id string, status models.Status, trueStatus models.TrueStatus, reason string) error

	// SetWasPending records that the watchdog fired for this transaction
	// and moves its displayed status to PENDING_CONFIRMATION.
	SetWasPending(ctx context.Context, id string) error

	// MarkRemediationAttempted flips the remediation latch. It returns true
	// only for the caller that performed the false->true transition, giving
	// concurrent remediation attempts compare-and-set semantics.
	MarkRemediationAttempted(ctx context.Context, id string) (bool, error)

	// ResetRemediation re-arms the latch. Operator action only; nothing in
	// the system calls it automatically.
	ResetRemediation(ctx context.Context, id string) error

	// DeleteTransaction removes a record. Valid only for cancelable
	// pending requests/splits; the store does not enforce that policy.
	DeleteTransaction(ctx context.Context, id string) error

	// ListByAccount returns the account's transactions most-recent-first.
	ListByAccount(accountID string) ([]models.Transaction, error)

	// ListRemediable returns transactions eligible for a remediation pass.
	ListRemediable() ([]models.Transaction, error)
}
