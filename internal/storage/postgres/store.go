// Package postgres holds the durable implementation of the transaction
// record store, backed by database/sql with the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// Schema creates the transactions table. Applied at startup; every statement
// is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                    TEXT PRIMARY KEY,
	created_at            TIMESTAMPTZ NOT NULL,
	kind                  TEXT NOT NULL,
	amount                NUMERIC(18,2) NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	from_account          TEXT NOT NULL,
	to_account            TEXT NOT NULL DEFAULT '',
	recipient             JSONB,
	participants          JSONB,
	status                TEXT NOT NULL,
	true_status           TEXT NOT NULL,
	was_pending           BOOLEAN NOT NULL DEFAULT FALSE,
	remediation_attempted BOOLEAN NOT NULL DEFAULT FALSE,
	reason                TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_from_account ON transactions (from_account, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_to_account ON transactions (to_account, created_at DESC);
`

// TransactionStore persists transaction records in postgres.
type TransactionStore struct {
	db *sql.DB
}

// NewTransactionStore wraps an open database handle.
func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// EnsureSchema applies the schema statements.
func (p *TransactionStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	return err
}

func (p *TransactionStore) SaveTransaction(ctx context.Context, tx models.Transaction) error {
	const query = `INSERT INTO transactions
	(id, created_at, kind, amount, description, from_account, to_account, recipient, participants,
	 status, true_status, was_pending, remediation_attempted, reason)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	recipient, participants, err := marshalCounterparties(tx)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, query,
		tx.ID, tx.Timestamp, tx.Kind, tx.Amount, tx.Description, tx.FromAccount, tx.ToAccount,
		recipient, participants, tx.Status, tx.TrueStatus, tx.WasPending, tx.RemediationAttempted, tx.Reason)
	return err
}

func (p *TransactionStore) GetTransaction(id string) (models.Transaction, error) {
	const query = selectColumns + ` WHERE id = $1`

	tx, err := scanTransaction(p.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func (p *TransactionStore) UpdateStatus(ctx context.Context, id string, status models.Status, trueStatus models.TrueStatus, reason string) error {
	const query = `UPDATE transactions
	SET status = $2, true_status = $3,
	    reason = CASE WHEN $4 = '' THEN reason ELSE $4 END
	WHERE id = $1`

	return p.exec(ctx, id, query, id, status, trueStatus, reason)
}

func (p *TransactionStore) SetWasPending(ctx context.Context, id string) error {
	// Terminal statuses win the race: a late watchdog notification must not
	// overwrite an already-resolved transaction.
	const query = `UPDATE transactions
	SET was_pending = TRUE, status = $2
	WHERE id = $1 AND status IN ($3, $4)`

	res, err := p.db.ExecContext(ctx, query, id,
		models.StatusPendingConfirmation, models.StatusProcessing, models.StatusPendingConfirmation)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return p.requireExists(id)
	}
	return nil
}

func (p *TransactionStore) MarkRemediationAttempted(ctx context.Context, id string) (bool, error) {
	// Compare-and-set: only one concurrent caller sees a row change.
	const query = `UPDATE transactions
	SET remediation_attempted = TRUE
	WHERE id = $1 AND remediation_attempted = FALSE`

	res, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, p.requireExists(id)
	}
	return true, nil
}

func (p *TransactionStore) ResetRemediation(ctx context.Context, id string) error {
	const query = `UPDATE transactions SET remediation_attempted = FALSE WHERE id = $1`
	return p.exec(ctx, id, query, id)
}

func (p *TransactionStore) DeleteTransaction(ctx context.Context, id string) error {
	const query = `DELETE FROM transactions WHERE id = $1`
	return p.exec(ctx, id, query, id)
}

func (p *TransactionStore) ListByAccount(accountID string) ([]models.Transaction, error) {
	const query = selectColumns + `
	WHERE from_account = $1 OR to_account = $1
	ORDER BY created_at DESC`

	return p.list(query, accountID)
}

func (p *TransactionStore) ListRemediable() ([]models.Transaction, error) {
	const query = selectColumns + `
	WHERE status IN ($1, $2) AND was_pending = TRUE AND remediation_attempted = FALSE
	ORDER BY created_at DESC`

	return p.list(query, models.StatusFailed, models.StatusFailedAfterPending)
}

const selectColumns = `SELECT id, created_at, kind, amount, description, from_account, to_account,
	recipient, participants, status, true_status, was_pending, remediation_attempted, reason
	FROM transactions`

// exec runs a single-row statement and maps "no row touched" to not-found.
func (p *TransactionStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	return nil
}

func (p *TransactionStore) requireExists(id string) error {
	var one int
	err := p.db.QueryRow(`SELECT 1 FROM transactions WHERE id = $1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", models.ErrTransactionNotFound, id)
	}
	return err
}

func (p *TransactionStore) list(query string, args ...any) ([]models.Transaction, error) {
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tx           models.Transaction
		recipient    []byte
		participants []byte
	)
	err := row.Scan(
		&tx.ID, &tx.Timestamp, &tx.Kind, &tx.Amount, &tx.Description, &tx.FromAccount, &tx.ToAccount,
		&recipient, &participants, &tx.Status, &tx.TrueStatus, &tx.WasPending, &tx.RemediationAttempted, &tx.Reason,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	if len(recipient) > 0 {
		if err := json.Unmarshal(recipient, &tx.Recipient); err != nil {
			return models.Transaction{}, fmt.Errorf("decode recipient: %w", err)
		}
	}
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &tx.Participants); err != nil {
			return models.Transaction{}, fmt.Errorf("decode participants: %w", err)
		}
	}
	return tx, nil
}

func marshalCounterparties(tx models.Transaction) ([]byte, []byte, error) {
	var recipient, participants []byte
	var err error
	if tx.Recipient != nil {
		if recipient, err = json.Marshal(tx.Recipient); err != nil {
			return nil, nil, fmt.Errorf("encode recipient: %w", err)
		}
	}
	if len(tx.Participants) > 0 {
		if participants, err = json.Marshal(tx.Participants); err != nil {
			return nil, nil, fmt.Errorf("encode participants: %w", err)
		}
	}
	return recipient, participants, nil
}

// Compile-time check: ensure TransactionStore implements the store interface.
var _ interfaces.TransactionStore = (*TransactionStore)(nil)
