// Package metrics registers the Prometheus collectors for the transaction
// lifecycle and remediation subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsInitiated counts admitted operations by kind.
	TransactionsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_transactions_initiated_total",
		Help: "Operations admitted past validation, by kind.",
	}, []string{"kind"})

	// InitiationsRejected counts operations refused at admission control.
	InitiationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_initiations_rejected_total",
		Help: "Operations rejected synchronously at initiation, by reason.",
	}, []string{"reason"})

	// WatchdogFires counts watchdog expirations before gateway resolution.
	WatchdogFires = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_watchdog_fires_total",
		Help: "Watchdog timers that fired before the gateway resolved.",
	})

	// TransactionsResolved counts terminal statuses.
	TransactionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_transactions_resolved_total",
		Help: "Transactions reaching a terminal status, by status.",
	}, []string{"status"})

	// ResolutionSeconds tracks initiation-to-resolution latency.
	ResolutionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payments_resolution_seconds",
		Help:    "Latency from initiation to gateway resolution.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. 64s
	})

	// RemediationOutcomes counts remediation passes by outcome.
	RemediationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_remediation_outcomes_total",
		Help: "Remediation passes, by outcome.",
	}, []string{"outcome"})
)
