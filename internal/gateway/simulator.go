// Package gateway contains the simulated operation gateway. It reproduces
// the latency and outcome families of the real backend this system fronts:
// fast and slow successes, fast and slow failures, and the "hidden success"
// where the submit call reports FAILED although the operation landed.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	interfaces "github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/interfaces"
	"github.com/sheikh-saqib/payments-watchdog-reconciliation-system/internal/models"
)

// Scenario selects how the simulator resolves submissions.
type Scenario string

const (
	// ScenarioRandom picks one of the four basic outcome families per
	// submission with equal probability.
	ScenarioRandom        Scenario = "random"
	ScenarioFastSuccess   Scenario = "fast-success"
	ScenarioSlowSuccess   Scenario = "slow-success"
	ScenarioFastFailure   Scenario = "fast-failure"
	ScenarioSlowFailure   Scenario = "slow-failure"
	ScenarioHiddenSuccess Scenario = "hidden-success"
)

// Scenarios lists every selectable scenario.
func Scenarios() []Scenario {
	return []Scenario{
		ScenarioRandom, ScenarioFastSuccess, ScenarioSlowSuccess,
		ScenarioFastFailure, ScenarioSlowFailure, ScenarioHiddenSuccess,
	}
}

// ParseScenario validates a scenario name.
func ParseScenario(s string) (Scenario, error) {
	for _, sc := range Scenarios() {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

// outcome is one scripted resolution.
type outcome struct {
	delay       time.Duration
	reported    bool // what Submit answers
	trueSuccess bool // what the authoritative store knows
}

// Simulator implements the operation gateway against a clock, so tests and
// demos can drive it deterministically with a mock clock.
type Simulator struct {
	clock      clock.Clock
	rng        *rand.Rand
	scenario   Scenario
	queryDelay time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	truth map[string]bool // transaction id -> authoritative outcome
}

// NewSimulator creates a simulator resolving per the given scenario.
func NewSimulator(clk clock.Clock, scenario Scenario, seed int64, logger *slog.Logger) *Simulator {
	return &Simulator{
		clock:      clk,
		rng:        rand.New(rand.NewSource(seed)),
		scenario:   scenario,
		queryDelay: 2 * time.Second,
		logger:     logger.With("component", "gateway"),
		truth:      make(map[string]bool),
	}
}

// SetScenario switches the outcome family for subsequent submissions.
func (s *Simulator) SetScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenario = scenario
}

// Submit resolves after the scripted delay. The watchdog firing upstream
// never cancels this; only ctx cancellation can cut it short.
func (s *Simulator) Submit(ctx context.Context, req interfaces.SubmitRequest) (interfaces.SubmitResult, error) {
	out := s.script(req.TransactionID)

	s.logger.Info("submission accepted",
		"transaction_id", req.TransactionID, "kind", req.Kind,
		"amount", req.Amount.String(), "delay", out.delay.String())

	t := s.clock.Timer(out.delay)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
		return interfaces.SubmitResult{}, ctx.Err()
	}

	s.logger.Info("submission resolved",
		"transaction_id", req.TransactionID, "success", out.reported)
	return interfaces.SubmitResult{TransactionID: req.TransactionID, Success: out.reported}, nil
}

// QueryTrueStatus answers the authoritative outcome recorded at submit time.
// Idempotent; independent of what Submit reported.
func (s *Simulator) QueryTrueStatus(ctx context.Context, transactionID string) (bool, error) {
	t := s.clock.Timer(s.queryDelay)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	s.mu.Lock()
	trueSuccess, ok := s.truth[transactionID]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrTransactionNotFound, transactionID)
	}
	return trueSuccess, nil
}

// script picks the outcome for one submission and records its truth.
func (s *Simulator) script(transactionID string) outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenario := s.scenario
	if scenario == ScenarioRandom {
		switch s.rng.Intn(4) {
		case 0:
			scenario = ScenarioFastSuccess
		case 1:
			scenario = ScenarioSlowSuccess
		case 2:
			scenario = ScenarioFastFailure
		default:
			scenario = ScenarioSlowFailure
		}
	}

	var out outcome
	switch scenario {
	case ScenarioFastSuccess:
		out = outcome{delay: s.between(2*time.Second, 5*time.Second), reported: true, trueSuccess: true}
	case ScenarioSlowSuccess:
		out = outcome{delay: s.between(11*time.Second, 13*time.Second), reported: true, trueSuccess: true}
	case ScenarioFastFailure:
		out = outcome{delay: s.between(2*time.Second, 5*time.Second), reported: false, trueSuccess: false}
	case ScenarioSlowFailure:
		out = outcome{delay: s.between(11*time.Second, 13*time.Second), reported: false, trueSuccess: false}
	case ScenarioHiddenSuccess:
		// The operation lands, but the response is reported as FAILED,
		// simulating a dropped success reply past the caller's patience.
		out = outcome{delay: s.between(13100*time.Millisecond, 13900*time.Millisecond), reported: false, trueSuccess: true}
	}

	s.truth[transactionID] = out.trueSuccess
	return out
}

// between returns a uniform duration in [lo, hi).
func (s *Simulator) between(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(s.rng.Int63n(int64(hi-lo)))
}

// Compile-time check: ensure Simulator implements the gateway interface.
var _ interfaces.OperationGateway = (*Simulator)(nil)
