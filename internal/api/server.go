// Package api exposes the caller-facing operations over HTTP: initiate,
// status, listing, remediation and cancelation, plus the account balance
// and ledger entry views.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/ledger"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/lifecycle"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/remediation"
)

// Server is the HTTP API server.
type Server struct {
	machine     *lifecycle.Machine
	coordinator *remediation.Coordinator
	ledger      *ledger.Ledger
	logger      *slog.Logger
}

// NewServer wires the HTTP layer over the core services.
func NewServer(machine *lifecycle.Machine, coordinator *remediation.Coordinator, ldg *ledger.Ledger, logger *slog.Logger) *Server {
	return &Server{
		machine:     machine,
		coordinator: coordinator,
		ledger:      ldg,
		logger:      logger.With("component", "api"),
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", s.handleInitiate)
		r.Get("/", s.handleList)
		r.Get("/remediable", s.handleListRemediable)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/status", s.handleStatus)
		r.Post("/{id}/remediate", s.handleRemediate)
		r.Post("/{id}/cancel", s.handleCancel)
	})

	r.Get("/accounts", s.handleAccounts)
	r.Get("/accounts/balance", s.handleBalance)
	r.Get("/ledgerEntries", s.handleLedgerEntries)

	return r
}

type initiateRequest struct {
	Kind         models.Kind        `json:"kind"`
	FromAccount  string             `json:"from_account"`
	ToAccount    string             `json:"to_account,omitempty"`
	Amount       decimal.Decimal    `json:"amount"`
	Description  string             `json:"description,omitempty"`
	Recipient    *models.Recipient  `json:"recipient,omitempty"`
	Participants []models.Recipient `json:"participants,omitempty"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := s.machine.Initiate(r.Context(), lifecycle.InitiateRequest{
		Kind:         req.Kind,
		FromAccount:  req.FromAccount,
		ToAccount:    req.ToAccount,
		Amount:       req.Amount,
		Description:  req.Description,
		Recipient:    req.Recipient,
		Participants: req.Participants,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is a mandatory field")
		return
	}

	txs, err := s.machine.ListTransactions(accountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tx, err := s.machine.GetTransaction(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.machine.GetStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemediate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome, err := s.coordinator.Remediate(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id": id,
		"outcome":        string(outcome),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.machine.CancelPending(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id": id,
		"status":         "canceled",
	})
}

func (s *Server) handleListRemediable(w http.ResponseWriter, r *http.Request) {
	txs, err := s.coordinator.ListRemediable()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Accounts())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is a mandatory field")
		return
	}

	balance, err := s.ledger.Balance(accountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		AccountID string          `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
	}{AccountID: accountID, Balance: balance})
}

func (s *Server) handleLedgerEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.ledger.Entries()
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeDomainError maps sentinel errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidAccount),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrNotCancelable),
		errors.Is(err, models.ErrNotRemediable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrRemediationQueryFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
