package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the caller-visible lifecycle status of a transaction.
type Status string

const (
	// StatusProcessing is the initial status of every watchdog-raced operation.
	StatusProcessing Status = "PROCESSING"
	// StatusPendingConfirmation is set when the watchdog fires before the
	// gateway resolves. It is a visibility signal only; no money has moved.
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	// StatusPending is the long-lived state of money requests and bill splits
	// awaiting external action. These never enter the watchdog race.
	StatusPending Status = "PENDING"

	StatusSuccess             Status = "SUCCESS"
	StatusFailed              Status = "FAILED"
	StatusSuccessAfterPending Status = "SUCCESS_AFTER_PENDING"
	StatusFailedAfterPending  Status = "FAILED_AFTER_PENDING"
)

// Terminal reports whether no further lifecycle transition will occur
// (remediation corrections excepted).
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSuccessAfterPending, StatusFailedAfterPending:
		return true
	}
	return false
}

// Succeeded reports whether the transaction's effect has been applied.
func (s Status) Succeeded() bool {
	return s == StatusSuccess || s == StatusSuccessAfterPending
}

// Failed reports whether the transaction resolved negatively.
func (s Status) Failed() bool {
	return s == StatusFailed || s == StatusFailedAfterPending
}

// TrueStatus is the authoritative outcome of a transaction as far as it is
// known. It can disagree with Status until remediation reconciles the two.
type TrueStatus string

const (
	TrueUnknown TrueStatus = "UNKNOWN"
	TrueSuccess TrueStatus = "SUCCESS"
	TrueFailed  TrueStatus = "FAILED"
)

// Kind classifies the business operation behind a transaction.
type Kind string

const (
	KindPayment     Kind = "PAYMENT"
	KindTransfer    Kind = "TRANSFER"
	KindP2P         Kind = "P2P"
	KindRequestSent Kind = "REQUEST_SENT"
	KindSplitSent   Kind = "SPLIT_SENT"
)

// RacesWatchdog reports whether operations of this kind go through the
// gateway/watchdog race. Requests and splits sit in PENDING until the
// counterparty acts, so there is nothing to race.
func (k Kind) RacesWatchdog() bool {
	return k == KindPayment || k == KindTransfer || k == KindP2P
}

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPayment, KindTransfer, KindP2P, KindRequestSent, KindSplitSent:
		return true
	}
	return false
}

// Recipient identifies the counterparty of a P2P send, request or split.
type Recipient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Contact  string `json:"contact,omitempty"`
	Initials string `json:"initials,omitempty"`
}

// Transaction is the record of one attempted operation. Amount is always the
// positive magnitude; the direction of the money movement follows from Kind
// (ledger entries carry the signs).
type Transaction struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	FromAccount  string          `json:"from_account"`
	ToAccount    string          `json:"to_account,omitempty"`
	Recipient    *Recipient      `json:"recipient,omitempty"`
	Participants []Recipient     `json:"participants,omitempty"`

	Status     Status     `json:"status"`
	TrueStatus TrueStatus `json:"true_status"`
	// WasPending records that the watchdog fired before the gateway resolved.
	WasPending bool `json:"was_pending"`
	// RemediationAttempted latches true on the first remediation pass and
	// never automatically resets.
	RemediationAttempted bool   `json:"remediation_attempted"`
	Reason               string `json:"reason,omitempty"`
}

// Remediable reports whether this transaction is eligible for a remediation
// pass: it failed inside the ambiguity window (watchdog fired first) and has
// not been remediated yet. A fast failure never qualifies; it failed before
// any ambiguity existed.
func (t Transaction) Remediable() bool {
	return t.Status.Failed() && t.WasPending && !t.RemediationAttempted
}

// Cancelable reports whether the initiator may still withdraw this record.
// Only long-lived requests/splits that never entered the watchdog race can
// be withdrawn.
func (t Transaction) Cancelable() bool {
	return !t.Kind.RacesWatchdog() && t.Status == StatusPending
}
