package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

func record(id string, kind models.Kind, status models.Status) models.Transaction {
	return models.Transaction{
		ID:          id,
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Kind:        kind,
		Amount:      decimal.NewFromFloat(25.00),
		FromAccount: "chk-001",
		Status:      status,
		TrueStatus:  models.TrueUnknown,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()

	tx := record("tx-1", models.KindPayment, models.StatusProcessing)
	if err := s.SaveTransaction(ctx, tx); err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}
	if err := s.SaveTransaction(ctx, tx); err == nil {
		t.Error("duplicate save succeeded, want error")
	}

	got, err := s.GetTransaction("tx-1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Status != models.StatusProcessing {
		t.Errorf("status = %s, want PROCESSING", got.Status)
	}

	if _, err := s.GetTransaction("nope"); !errors.Is(err, models.ErrTransactionNotFound) {
		t.Errorf("missing id error = %v, want ErrTransactionNotFound", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	_ = s.SaveTransaction(ctx, record("tx-1", models.KindPayment, models.StatusProcessing))

	if err := s.UpdateStatus(ctx, "tx-1", models.StatusFailed, models.TrueFailed, "declined"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := s.GetTransaction("tx-1")
	if got.Status != models.StatusFailed || got.TrueStatus != models.TrueFailed || got.Reason != "declined" {
		t.Errorf("got %s/%s/%q after update", got.Status, got.TrueStatus, got.Reason)
	}

	// Empty reason leaves the previous reason in place.
	if err := s.UpdateStatus(ctx, "tx-1", models.StatusSuccess, models.TrueSuccess, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = s.GetTransaction("tx-1")
	if got.Reason != "declined" {
		t.Errorf("reason = %q, want prior reason preserved", got.Reason)
	}
}

func TestSetWasPending(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	_ = s.SaveTransaction(ctx, record("tx-1", models.KindPayment, models.StatusProcessing))

	if err := s.SetWasPending(ctx, "tx-1"); err != nil {
		t.Fatalf("SetWasPending: %v", err)
	}
	got, _ := s.GetTransaction("tx-1")
	if !got.WasPending || got.Status != models.StatusPendingConfirmation {
		t.Errorf("got was_pending=%t status=%s", got.WasPending, got.Status)
	}
}

func TestSetWasPendingAfterTerminalIsNoop(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	_ = s.SaveTransaction(ctx, record("tx-1", models.KindPayment, models.StatusProcessing))
	_ = s.UpdateStatus(ctx, "tx-1", models.StatusSuccess, models.TrueSuccess, "")

	if err := s.SetWasPending(ctx, "tx-1"); err != nil {
		t.Fatalf("SetWasPending: %v", err)
	}
	got, _ := s.GetTransaction("tx-1")
	if got.WasPending || got.Status != models.StatusSuccess {
		t.Errorf("late watchdog overwrote terminal record: was_pending=%t status=%s", got.WasPending, got.Status)
	}
}

func TestMarkRemediationAttemptedCAS(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	_ = s.SaveTransaction(ctx, record("tx-1", models.KindPayment, models.StatusFailedAfterPending))

	// Many concurrent callers; exactly one wins the latch.
	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := s.MarkRemediationAttempted(ctx, "tx-1")
			if err != nil {
				t.Errorf("MarkRemediationAttempted: %v", err)
				return
			}
			if first {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}

	if err := s.ResetRemediation(ctx, "tx-1"); err != nil {
		t.Fatalf("ResetRemediation: %v", err)
	}
	first, _ := s.MarkRemediationAttempted(ctx, "tx-1")
	if !first {
		t.Error("latch not re-armed after ResetRemediation")
	}
}

func TestListByAccountMostRecentFirst(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_ = s.SaveTransaction(ctx, record(fmt.Sprintf("tx-%d", i), models.KindPayment, models.StatusSuccess))
	}
	other := record("tx-other", models.KindPayment, models.StatusSuccess)
	other.FromAccount = "sav-001"
	_ = s.SaveTransaction(ctx, other)

	txs, err := s.ListByAccount("chk-001")
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("len = %d, want 3", len(txs))
	}
	for i, want := range []string{"tx-3", "tx-2", "tx-1"} {
		if txs[i].ID != want {
			t.Errorf("txs[%d] = %s, want %s", i, txs[i].ID, want)
		}
	}
}

func TestListByAccountIncludesTransferDestination(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	tx := record("tx-t", models.KindTransfer, models.StatusSuccess)
	tx.ToAccount = "sav-001"
	_ = s.SaveTransaction(ctx, tx)

	txs, _ := s.ListByAccount("sav-001")
	if len(txs) != 1 {
		t.Errorf("destination listing len = %d, want 1", len(txs))
	}
}

func TestListRemediable(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()

	eligible := record("tx-eligible", models.KindPayment, models.StatusFailedAfterPending)
	eligible.WasPending = true
	_ = s.SaveTransaction(ctx, eligible)

	// Fast failure: never pending, never remediable.
	_ = s.SaveTransaction(ctx, record("tx-fast-fail", models.KindPayment, models.StatusFailed))

	attempted := record("tx-attempted", models.KindPayment, models.StatusFailedAfterPending)
	attempted.WasPending = true
	attempted.RemediationAttempted = true
	_ = s.SaveTransaction(ctx, attempted)

	txs, err := s.ListRemediable()
	if err != nil {
		t.Fatalf("ListRemediable: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "tx-eligible" {
		t.Errorf("remediable = %+v, want only tx-eligible", txs)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := NewTransactionStore()
	ctx := context.Background()
	_ = s.SaveTransaction(ctx, record("tx-1", models.KindRequestSent, models.StatusPending))

	if err := s.DeleteTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := s.GetTransaction("tx-1"); !errors.Is(err, models.ErrTransactionNotFound) {
		t.Error("record still present after delete")
	}
	if err := s.DeleteTransaction(ctx, "tx-1"); !errors.Is(err, models.ErrTransactionNotFound) {
		t.Errorf("second delete = %v, want ErrTransactionNotFound", err)
	}
}
