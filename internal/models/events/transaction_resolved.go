package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// Topic names used by the event publishers.
const (
	TopicTransactionResolved  = "transaction_resolved"
	TopicRemediationCompleted = "remediation_completed"
)

// TransactionResolved is emitted once a transaction reaches a terminal
// lifecycle status, whatever that status is.
type TransactionResolved struct {
	TransactionID string          `json:"transaction_id"`
	Kind          models.Kind     `json:"kind"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        models.Status   `json:"status"`
	WasPending    bool            `json:"was_pending"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
