// Package memory holds the in-memory implementation of the transaction
// record store. It is the default backend; the postgres implementation is
// the durable alternative behind the same interface.
package memory

import (
	"context"
	"fmt"
	"sync"

	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// TransactionStore keeps every transaction record in process memory.
// Safe for concurrent use.
type TransactionStore struct {
	mu           sync.Mutex
	transactions map[string]models.Transaction
	order        []string // insertion order, for most-recent-first listings
}

// NewTransactionStore creates an empty store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		transactions: make(map[string]models.Transaction),
	}
}

// SaveTransaction appends a new record. Saving an id twice is an error;
// records are created exactly once and then updated in place.
func (s *TransactionStore) SaveTransaction(ctx context.Context, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return fmt.Errorf("transaction %s already recorded", tx.ID)
	}
	s.transactions[tx.ID] = tx
	s.order = append(s.order, tx.ID)
	return nil
}

// GetTransaction returns one record by id.
func (s *TransactionStore) GetTransaction(id string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	return tx, nil
}

// UpdateStatus sets the displayed status, the known authoritative status and
// an optional reason.
func (s *TransactionStore) UpdateStatus(ctx context.Context, id string, status models.Status, trueStatus models.TrueStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	tx.Status = status
	tx.TrueStatus = trueStatus
	if reason != "" {
		tx.Reason = reason
	}
	s.transactions[id] = tx
	return nil
}

// SetWasPending marks the watchdog as having fired for this transaction and
// moves the displayed status to PENDING_CONFIRMATION. It is a no-op if the
// transaction already reached a terminal status, which makes the watchdog
// and resolution paths race-safe at the store level too.
func (s *TransactionStore) SetWasPending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	if tx.Status.Terminal() {
		return nil
	}
	tx.WasPending = true
	tx.Status = models.StatusPendingConfirmation
	s.transactions[id] = tx
	return nil
}

// MarkRemediationAttempted flips the latch with compare-and-set semantics:
// exactly one caller observes the false->true transition.
func (s *TransactionStore) MarkRemediationAttempted(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	if tx.RemediationAttempted {
		return false, nil
	}
	tx.RemediationAttempted = true
	s.transactions[id] = tx
	return true, nil
}

// ResetRemediation re-arms the remediation latch. Operator action only.
func (s *TransactionStore) ResetRemediation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	tx.RemediationAttempted = false
	s.transactions[id] = tx
	return nil
}

// DeleteTransaction removes a record entirely.
func (s *TransactionStore) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	delete(s.transactions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListByAccount returns the transactions initiated from (or, for transfers,
// received by) the account, most recent first.
func (s *TransactionStore) ListByAccount(accountID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Transaction
	for i := len(s.order) - 1; i >= 0; i-- {
		tx := s.transactions[s.order[i]]
		if tx.FromAccount == accountID || tx.ToAccount == accountID {
			result = append(result, tx)
		}
	}
	return result, nil
}

// ListRemediable returns the transactions eligible for remediation,
// most recent first.
func (s *TransactionStore) ListRemediable() ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Transaction
	for i := len(s.order) - 1; i >= 0; i-- {
		if tx := s.transactions[s.order[i]]; tx.Remediable() {
			result = append(result, tx)
		}
	}
	return result, nil
}

// Compile-time check: ensure TransactionStore implements the store interface.
var _ interfaces.TransactionStore = (*TransactionStore)(nil)
