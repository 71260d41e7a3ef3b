package events

import (
	"time"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// RemediationCompleted is emitted after a remediation pass finishes,
// whether it upgraded the transaction or confirmed the failure.
type RemediationCompleted struct {
	TransactionID string            `json:"transaction_id"`
	Outcome       string            `json:"outcome"`
	TrueStatus    models.TrueStatus `json:"true_status"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
