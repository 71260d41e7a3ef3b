package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// Ledger is the authoritative store of account balances plus the append-only
// entry log behind them. Balances change only through Apply and
// AdjustForRemediation; nothing else in the system mutates an account.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	entries  []models.LedgerEntry
	// applied holds the ids of transactions whose balance effect has landed.
	// It is the at-most-once guard shared by the state machine and the
	// remediation coordinator.
	applied map[string]bool

	muMap map[string]*sync.Mutex // per-account locks
	mapMu sync.Mutex             // protects the muMap itself

	clock  clock.Clock
	logger *slog.Logger
}

// NewLedger creates a ledger seeded with the given accounts.
func NewLedger(seed []models.Account, clk clock.Clock, logger *slog.Logger) *Ledger {
	accounts := make(map[string]*models.Account, len(seed))
	for _, a := range seed {
		acct := a
		accounts[a.ID] = &acct
	}
	return &Ledger{
		accounts: accounts,
		applied:  make(map[string]bool),
		muMap:    make(map[string]*sync.Mutex),
		clock:    clk,
		logger:   logger.With("component", "ledger"),
	}
}

// SeedAccounts is the fixed set of demo accounts created at setup time.
func SeedAccounts() []models.Account {
	return []models.Account{
		{ID: "chk-001", Name: "Primary Checking", Balance: decimal.NewFromFloat(5420.50)},
		{ID: "sav-001", Name: "High-Yield Savings", Balance: decimal.NewFromFloat(12780.25)},
	}
}

func (l *Ledger) getAccountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// Balance returns a read-only snapshot of the account's balance.
func (l *Ledger) Balance(accountID string) (decimal.Decimal, error) {
	lock := l.getAccountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", models.ErrInvalidAccount, accountID)
	}
	return acct.Balance, nil
}

// CheckFunds is the admission-control gate run at initiation time. It fails
// fast with ErrInsufficientFunds before any watchdog or gateway activity.
func (l *Ledger) CheckFunds(accountID string, amount decimal.Decimal) error {
	balance, err := l.Balance(accountID)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s, requested %s", models.ErrInsufficientFunds, balance, amount)
	}
	return nil
}

// Accounts returns a snapshot copy of every account.
func (l *Ledger) Accounts() []models.Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, *a)
	}
	return out
}

// Apply posts the transaction's balance effect: a debit of the source
// account and, for transfers, the matching credit of the destination.
// A given transaction id is applied at most once for its lifetime; a second
// call returns ErrEffectAlreadyApplied and changes nothing.
func (l *Ledger) Apply(ctx context.Context, tx models.Transaction) error {
	if tx.Kind == models.KindTransfer {
		return l.applyTransfer(ctx, tx)
	}

	lock := l.getAccountLock(tx.FromAccount)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied[tx.ID] {
		return fmt.Errorf("%w: %s", models.ErrEffectAlreadyApplied, tx.ID)
	}
	if err := l.post(tx.FromAccount, tx.Amount.Neg(), tx.ID, "-debit", tx.Description); err != nil {
		return err
	}
	l.applied[tx.ID] = true

	l.logger.Info("ledger effect applied",
		"transaction_id", tx.ID, "account_id", tx.FromAccount, "amount", tx.Amount.Neg().String())
	return nil
}

func (l *Ledger) applyTransfer(_ context.Context, tx models.Transaction) error {
	debitLock := l.getAccountLock(tx.FromAccount)
	creditLock := l.getAccountLock(tx.ToAccount)

	// Lock in account-id order to avoid deadlocks between opposing transfers.
	if tx.FromAccount < tx.ToAccount {
		debitLock.Lock()
		creditLock.Lock()
	} else {
		creditLock.Lock()
		debitLock.Lock()
	}
	defer debitLock.Unlock()
	defer creditLock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied[tx.ID] {
		return fmt.Errorf("%w: %s", models.ErrEffectAlreadyApplied, tx.ID)
	}
	if err := l.post(tx.FromAccount, tx.Amount.Neg(), tx.ID, "-debit", tx.Description); err != nil {
		return err
	}
	if err := l.post(tx.ToAccount, tx.Amount, tx.ID, "-credit", tx.Description); err != nil {
		return err
	}
	l.applied[tx.ID] = true

	l.logger.Info("transfer applied",
		"transaction_id", tx.ID, "from_account", tx.FromAccount, "to_account", tx.ToAccount,
		"amount", tx.Amount.String())
	return nil
}

// AdjustForRemediation applies the previously-skipped effect of a
// transaction whose failure turned out to be a hidden success. Calling it
// for a transaction whose effect already landed is a harmless no-op, which
// keeps remediation idempotent end to end.
func (l *Ledger) AdjustForRemediation(ctx context.Context, tx models.Transaction) error {
	if err := l.Apply(ctx, tx); err != nil {
		if errors.Is(err, models.ErrEffectAlreadyApplied) {
			l.logger.Warn("remediation adjustment skipped, effect already applied", "transaction_id", tx.ID)
			return nil
		}
		return err
	}
	return nil
}

// post appends one ledger entry and moves the account balance.
// Caller must hold the relevant account lock and l.mu.
func (l *Ledger) post(accountID string, amount decimal.Decimal, txID, suffix, description string) error {
	acct, ok := l.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrInvalidAccount, accountID)
	}

	acct.Balance = acct.Balance.Add(amount)
	l.entries = append(l.entries, models.LedgerEntry{
		ID:            txID + suffix,
		AccountID:     accountID,
		TransactionID: txID,
		Amount:        amount,
		Description:   description,
		CreatedAt:     l.clock.Now(),
	})
	return nil
}

// Entries returns a copy of the full entry log.
func (l *Ledger) Entries() []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	copied := make([]models.LedgerEntry, len(l.entries))
	copy(copied, l.entries)
	return copied
}

// EntriesByAccount returns the entries touching one account.
func (l *Ledger) EntriesByAccount(accountID string) []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range l.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result
}

// Applied reports whether the transaction's effect has landed on balances.
func (l *Ledger) Applied(txID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied[txID]
}
