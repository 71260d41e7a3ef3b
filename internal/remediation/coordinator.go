// Package remediation reconciles ambiguous transaction outcomes. A
// transaction that failed after its watchdog fired may in truth have
// succeeded; the coordinator asks the gateway's authoritative status
// endpoint and, on a hidden success, applies the balance effect that was
// skipped at resolution time.
//
// Policy: remediation only upgrades FAILED to SUCCESS. A confirmed success
// is never retroactively reversed by a background pass.
package remediation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"

	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/ledger"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/metrics"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models/events"
)

// Outcome is the result of one remediation pass.
type Outcome string

const (
	// OutcomeUpgraded: the authoritative status was SUCCESS; the record was
	// corrected and the skipped ledger effect applied.
	OutcomeUpgraded Outcome = "UPGRADED_TO_SUCCESS"
	// OutcomeConfirmedFailure: the authoritative status agreed the
	// transaction failed; the ledger is untouched.
	OutcomeConfirmedFailure Outcome = "CONFIRMED_FAILURE"
	// OutcomeAlreadyAttempted: a prior pass ran for this transaction; this
	// call was a no-op.
	OutcomeAlreadyAttempted Outcome = "ALREADY_ATTEMPTED"
)

// Coordinator runs remediation passes.
type Coordinator struct {
	ledger    *ledger.Ledger
	store     interfaces.TransactionStore
	gateway   interfaces.OperationGateway
	publisher interfaces.EventPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewCoordinator wires a coordinator.
func NewCoordinator(
	ldg *ledger.Ledger,
	store interfaces.TransactionStore,
	gw interfaces.OperationGateway,
	pub interfaces.EventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		ledger:    ldg,
		store:     store,
		gateway:   gw,
		publisher: pub,
		clock:     clk,
		logger:    logger.With("component", "remediation"),
	}
}

// Remediate reconciles one transaction against the authoritative status.
//
// The remediation latch is set before the query runs, so concurrent calls
// for the same transaction collapse to a single pass; every later call
// returns OutcomeAlreadyAttempted without touching anything. If the query
// itself fails, the latch stays set and the record keeps its last known
// state; an outcome that could not be confirmed is never guessed.
func (c *Coordinator) Remediate(ctx context.Context, txID string) (Outcome, error) {
	tx, err := c.store.GetTransaction(txID)
	if err != nil {
		return "", err
	}
	// The latch guard comes before eligibility: a transaction that already
	// went through a pass answers ALREADY_ATTEMPTED even if that pass
	// rewrote it to SUCCESS, keeping repeated calls a plain no-op.
	if tx.RemediationAttempted {
		c.logger.Info("remediation already attempted", "transaction_id", txID)
		metrics.RemediationOutcomes.WithLabelValues(string(OutcomeAlreadyAttempted)).Inc()
		return OutcomeAlreadyAttempted, nil
	}
	if !tx.Status.Failed() || !tx.WasPending {
		return "", fmt.Errorf("%w: %s is %s (was_pending=%t)",
			models.ErrNotRemediable, txID, tx.Status, tx.WasPending)
	}

	first, err := c.store.MarkRemediationAttempted(ctx, txID)
	if err != nil {
		return "", err
	}
	if !first {
		c.logger.Info("remediation already attempted", "transaction_id", txID)
		metrics.RemediationOutcomes.WithLabelValues(string(OutcomeAlreadyAttempted)).Inc()
		return OutcomeAlreadyAttempted, nil
	}

	c.logger.Info("querying authoritative status", "transaction_id", txID)
	isSuccess, err := c.gateway.QueryTrueStatus(ctx, txID)
	if err != nil {
		c.logger.Error("authoritative status query failed", "transaction_id", txID, "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrRemediationQueryFailed, err)
	}

	var outcome Outcome
	trueStatus := models.TrueFailed
	if isSuccess {
		outcome = OutcomeUpgraded
		trueStatus = models.TrueSuccess

		// Apply the skipped effect before rewriting the status, so a crash
		// in between leaves a FAILED record with money moved (visible and
		// correctable) rather than a SUCCESS record with no money moved.
		if err := c.ledger.AdjustForRemediation(ctx, tx); err != nil {
			return "", fmt.Errorf("apply remediation adjustment: %w", err)
		}
		if err := c.store.UpdateStatus(ctx, txID, models.StatusSuccess, trueStatus,
			"remediation: backend confirmed success"); err != nil {
			return "", err
		}
		c.logger.Info("transaction upgraded to success", "transaction_id", txID)
	} else {
		outcome = OutcomeConfirmedFailure
		if err := c.store.UpdateStatus(ctx, txID, models.StatusFailed, trueStatus,
			"remediation: backend confirmed failure"); err != nil {
			return "", err
		}
		c.logger.Info("failure confirmed as final", "transaction_id", txID)
	}

	metrics.RemediationOutcomes.WithLabelValues(string(outcome)).Inc()

	if err := c.publisher.Publish(ctx, events.TopicRemediationCompleted, events.RemediationCompleted{
		TransactionID: txID,
		Outcome:       string(outcome),
		TrueStatus:    trueStatus,
		OccurredAt:    c.clock.Now(),
	}); err != nil {
		c.logger.Error("failed to publish remediation event", "transaction_id", txID, "error", err)
	}

	return outcome, nil
}

// ListRemediable surfaces the transactions eligible for a pass.
func (c *Coordinator) ListRemediable() ([]models.Transaction, error) {
	return c.store.ListRemediable()
}
