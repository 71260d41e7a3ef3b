// Package lifecycle owns the transaction state machine: one asynchronous
// financial operation from initiation to terminal status, racing the
// gateway's resolution against a watchdog timer.
//
// The race has exactly one correctness rule: the watchdog firing is a
// visibility signal. It never moves money and never cancels the gateway
// call. The single balance mutation happens at gateway resolution, and only
// on success.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/ledger"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/metrics"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models/events"
)

// Config carries the lifecycle thresholds. Both are visibility knobs, not
// correctness timeouts; the underlying operation is never aborted because
// either elapsed.
type Config struct {
	// WatchdogThreshold bounds how long the caller waits before seeing
	// PENDING_CONFIRMATION.
	WatchdogThreshold time.Duration
	// HighRiskThreshold is the point past which a still-pending transaction
	// is flagged as likely to need remediation.
	HighRiskThreshold time.Duration
}

// InitiateRequest describes one operation to run.
type InitiateRequest struct {
	Kind         models.Kind
	FromAccount  string
	ToAccount    string // transfers only
	Amount       decimal.Decimal
	Description  string
	Recipient    *models.Recipient
	Participants []models.Recipient
}

// StatusInfo is the caller-visible view of a transaction's progress.
type StatusInfo struct {
	Status models.Status `json:"status"`
	// HighRisk is set when the transaction has been pending past the
	// high-risk threshold. Informational only.
	HighRisk bool `json:"high_risk"`
}

// attempt is the transient per-operation state: the watchdog timer and the
// flags both race participants coordinate through.
type attempt struct {
	mu         sync.Mutex
	watchdog   *clock.Timer
	wasPending bool
	resolved   bool
	done       chan struct{}
}

// Machine coordinates transaction lifecycles. One Machine serves many
// concurrent operations; each initiation is an independent flow with its
// own watchdog.
type Machine struct {
	cfg       Config
	ledger    *ledger.Ledger
	store     interfaces.TransactionStore
	gateway   interfaces.OperationGateway
	publisher interfaces.EventPublisher
	clock     clock.Clock
	newID     func() string
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]*attempt
}

// NewMachine wires a state machine. Clock and id generation are injected so
// tests can run on simulated time with fixed ids.
func NewMachine(
	cfg Config,
	ldg *ledger.Ledger,
	store interfaces.TransactionStore,
	gw interfaces.OperationGateway,
	pub interfaces.EventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
) *Machine {
	return &Machine{
		cfg:       cfg,
		ledger:    ldg,
		store:     store,
		gateway:   gw,
		publisher: pub,
		clock:     clk,
		newID:     uuid.NewString,
		logger:    logger.With("component", "lifecycle"),
		inflight:  make(map[string]*attempt),
	}
}

// SetIDGenerator overrides transaction id allocation. Test hook.
func (m *Machine) SetIDGenerator(fn func() string) { m.newID = fn }

// Initiate validates the request, records the transaction and starts the
// watchdog race. Validation failures are returned synchronously and leave no
// trace: no record, no timer, no gateway call.
func (m *Machine) Initiate(ctx context.Context, req InitiateRequest) (models.Transaction, error) {
	if !req.Kind.Valid() {
		metrics.InitiationsRejected.WithLabelValues("invalid_kind").Inc()
		return models.Transaction{}, fmt.Errorf("%w: %q", models.ErrInvalidKind, req.Kind)
	}
	if req.Amount.Cmp(decimal.Zero) <= 0 {
		metrics.InitiationsRejected.WithLabelValues("invalid_amount").Inc()
		return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrInvalidAmount, req.Amount)
	}

	tx := models.Transaction{
		ID:           m.newID(),
		Timestamp:    m.clock.Now(),
		Kind:         req.Kind,
		Amount:       req.Amount,
		Description:  req.Description,
		FromAccount:  req.FromAccount,
		ToAccount:    req.ToAccount,
		Recipient:    req.Recipient,
		Participants: req.Participants,
		TrueStatus:   models.TrueUnknown,
	}

	// Requests and splits are long-lived PENDING records awaiting external
	// action; they carry no outflow and never enter the watchdog race. The
	// account must still exist, but its balance is not checked.
	if !req.Kind.RacesWatchdog() {
		if _, err := m.ledger.Balance(req.FromAccount); err != nil {
			metrics.InitiationsRejected.WithLabelValues("invalid_account").Inc()
			return models.Transaction{}, err
		}
		tx.Status = models.StatusPending
		if err := m.store.SaveTransaction(ctx, tx); err != nil {
			return models.Transaction{}, err
		}
		metrics.TransactionsInitiated.WithLabelValues(string(req.Kind)).Inc()
		m.logger.Info("pending record created", "transaction_id", tx.ID, "kind", tx.Kind)
		return tx, nil
	}

	if err := m.validateAccounts(req); err != nil {
		return models.Transaction{}, err
	}

	tx.Status = models.StatusProcessing
	if err := m.store.SaveTransaction(ctx, tx); err != nil {
		return models.Transaction{}, err
	}
	metrics.TransactionsInitiated.WithLabelValues(string(req.Kind)).Inc()

	att := &attempt{done: make(chan struct{})}
	m.mu.Lock()
	m.inflight[tx.ID] = att
	m.mu.Unlock()

	att.watchdog = m.clock.AfterFunc(m.cfg.WatchdogThreshold, func() {
		m.watchdogFired(tx.ID, att)
	})

	m.logger.Info("transaction initiated",
		"transaction_id", tx.ID, "kind", tx.Kind, "from_account", tx.FromAccount,
		"amount", tx.Amount.String(), "watchdog_threshold", m.cfg.WatchdogThreshold.String())

	// The gateway call must run to completion even if the caller goes away:
	// its eventual result still has to be recorded, and possibly remediated.
	go m.run(context.WithoutCancel(ctx), tx, att)

	return tx, nil
}

func (m *Machine) validateAccounts(req InitiateRequest) error {
	if err := m.ledger.CheckFunds(req.FromAccount, req.Amount); err != nil {
		metrics.InitiationsRejected.WithLabelValues("admission").Inc()
		return err
	}
	if req.Kind == models.KindTransfer {
		if req.ToAccount == "" || req.ToAccount == req.FromAccount {
			metrics.InitiationsRejected.WithLabelValues("invalid_account").Inc()
			return fmt.Errorf("%w: transfer requires a distinct destination account", models.ErrInvalidAccount)
		}
		if _, err := m.ledger.Balance(req.ToAccount); err != nil {
			metrics.InitiationsRejected.WithLabelValues("invalid_account").Inc()
			return err
		}
	}
	return nil
}

// run drives one lifecycle to its terminal status.
func (m *Machine) run(ctx context.Context, tx models.Transaction, att *attempt) {
	res, err := m.gateway.Submit(ctx, interfaces.SubmitRequest{
		TransactionID: tx.ID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
	})
	switch {
	case err != nil:
		m.logger.Error("gateway submit failed", "transaction_id", tx.ID, "error", err)
		m.resolve(ctx, tx, att, false, fmt.Sprintf("gateway error: %v", err))
	case res.TransactionID != tx.ID:
		m.logger.Error("gateway correlation mismatch",
			"transaction_id", tx.ID, "echoed_id", res.TransactionID)
		m.resolve(ctx, tx, att, false, "gateway correlation mismatch")
	default:
		m.resolve(ctx, tx, att, res.Success, "")
	}
}

// watchdogFired is the timer callback. It marks the ambiguity window open
// and surfaces PENDING_CONFIRMATION; it must not touch the ledger and must
// not cancel the gateway call.
func (m *Machine) watchdogFired(txID string, att *attempt) {
	att.mu.Lock()
	if att.resolved {
		att.mu.Unlock()
		return
	}
	att.wasPending = true
	att.mu.Unlock()

	if err := m.store.SetWasPending(context.Background(), txID); err != nil {
		m.logger.Error("failed to record pending transition", "transaction_id", txID, "error", err)
		return
	}
	metrics.WatchdogFires.Inc()
	m.logger.Warn("watchdog fired, caller shown pending confirmation", "transaction_id", txID)
}

// resolve finishes the lifecycle once the gateway has answered. Only here
// may a balance change, and only for a success.
func (m *Machine) resolve(ctx context.Context, tx models.Transaction, att *attempt, success bool, reason string) {
	att.mu.Lock()
	att.resolved = true
	if att.watchdog != nil {
		// Stopping an already-fired timer is a harmless no-op.
		att.watchdog.Stop()
	}
	wasPending := att.wasPending
	att.mu.Unlock()

	var status models.Status
	trueStatus := models.TrueFailed
	switch {
	case success && wasPending:
		status = models.StatusSuccessAfterPending
		trueStatus = models.TrueSuccess
	case success:
		status = models.StatusSuccess
		trueStatus = models.TrueSuccess
	case wasPending:
		status = models.StatusFailedAfterPending
	default:
		status = models.StatusFailed
	}

	// The watchdog's own store write may still be in flight; once the
	// terminal status lands it is rejected by the terminal-status guard, so
	// the flag has to be persisted here first.
	if wasPending {
		if err := m.store.SetWasPending(ctx, tx.ID); err != nil {
			m.logger.Error("failed to record pending transition", "transaction_id", tx.ID, "error", err)
		}
	}

	if success {
		if err := m.ledger.Apply(ctx, tx); err != nil {
			m.logger.Error("failed to apply ledger effect", "transaction_id", tx.ID, "error", err)
		}
	}

	if err := m.store.UpdateStatus(ctx, tx.ID, status, trueStatus, reason); err != nil {
		m.logger.Error("failed to record terminal status", "transaction_id", tx.ID, "error", err)
	}

	metrics.TransactionsResolved.WithLabelValues(string(status)).Inc()
	metrics.ResolutionSeconds.Observe(m.clock.Now().Sub(tx.Timestamp).Seconds())

	m.logger.Info("transaction resolved",
		"transaction_id", tx.ID, "status", status, "was_pending", wasPending,
		"remediable", !success && wasPending)

	if err := m.publisher.Publish(ctx, events.TopicTransactionResolved, events.TransactionResolved{
		TransactionID: tx.ID,
		Kind:          tx.Kind,
		FromAccount:   tx.FromAccount,
		ToAccount:     tx.ToAccount,
		Amount:        tx.Amount,
		Status:        status,
		WasPending:    wasPending,
		OccurredAt:    m.clock.Now(),
	}); err != nil {
		m.logger.Error("failed to publish resolution event", "transaction_id", tx.ID, "error", err)
	}

	m.mu.Lock()
	delete(m.inflight, tx.ID)
	m.mu.Unlock()
	close(att.done)
}

// GetStatus returns the current status plus the high-risk annotation for
// long-pending transactions.
func (m *Machine) GetStatus(txID string) (StatusInfo, error) {
	tx, err := m.store.GetTransaction(txID)
	if err != nil {
		return StatusInfo{}, err
	}
	info := StatusInfo{Status: tx.Status}
	if tx.Status == models.StatusPendingConfirmation &&
		m.clock.Now().Sub(tx.Timestamp) >= m.cfg.HighRiskThreshold {
		info.HighRisk = true
	}
	return info, nil
}

// GetTransaction returns the full record.
func (m *Machine) GetTransaction(txID string) (models.Transaction, error) {
	return m.store.GetTransaction(txID)
}

// ListTransactions returns the account's history, most recent first.
func (m *Machine) ListTransactions(accountID string) ([]models.Transaction, error) {
	return m.store.ListByAccount(accountID)
}

// CancelPending withdraws a long-lived request/split record. Transactions
// that entered the watchdog race are never cancelable.
func (m *Machine) CancelPending(ctx context.Context, txID string) error {
	tx, err := m.store.GetTransaction(txID)
	if err != nil {
		return err
	}
	if !tx.Cancelable() {
		return fmt.Errorf("%w: %s is %s %s", models.ErrNotCancelable, txID, tx.Kind, tx.Status)
	}
	if err := m.store.DeleteTransaction(ctx, txID); err != nil {
		return err
	}
	m.logger.Info("pending record withdrawn", "transaction_id", txID, "kind", tx.Kind)
	return nil
}

// WaitForResolution blocks until the transaction reaches a terminal status,
// the context is canceled, or the transaction turns out not to be in the
// watchdog race at all (already terminal, or a long-lived pending record).
func (m *Machine) WaitForResolution(ctx context.Context, txID string) error {
	m.mu.Lock()
	att, ok := m.inflight[txID]
	m.mu.Unlock()

	if !ok {
		_, err := m.store.GetTransaction(txID)
		return err
	}

	select {
	case <-att.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset discards transient per-attempt state for attempts that already
// resolved. Recorded transactions are untouched. In-flight races keep
// running; abandoning a live gateway call would lose its eventual result.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, att := range m.inflight {
		select {
		case <-att.done:
			delete(m.inflight, id)
		default:
		}
	}
}

// InflightCount reports how many operations are currently racing.
func (m *Machine) InflightCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}
