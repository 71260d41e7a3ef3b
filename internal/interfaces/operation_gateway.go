package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// SubmitRequest is the payload handed to the operation gateway.
type SubmitRequest struct {
	TransactionID string
	Kind          models.Kind
	Amount        decimal.Decimal
}

// SubmitResult is the gateway's eventual answer. TransactionID echoes the
// id from the request for correlation.
type SubmitResult struct {
	TransactionID string
	Success       bool
}

// OperationGateway performs one asynchronous financial operation. Submit may
// take an arbitrary, caller-unknown amount of time; it is never canceled
// because a watchdog fired. QueryTrueStatus is the idempotent authoritative
// status endpoint used only during remediation, and is not required to match
// what Submit reported for the same transaction.
type OperationGateway interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	QueryTrueStatus(ctx context.Context, transactionID string) (bool, error)
}
