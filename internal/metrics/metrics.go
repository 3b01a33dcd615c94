// Package metrics exposes prometheus instrumentation for the core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthResults counts authentication outcomes by denial code ("ok" on success).
	AuthResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beam",
		Subsystem: "auth",
		Name:      "results_total",
		Help:      "Authentication outcomes by result code.",
	}, []string{"result"})

	// VaultOps counts vault operations by scheme and operation.
	VaultOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beam",
		Subsystem: "vault",
		Name:      "operations_total",
		Help:      "Vault encrypt/decrypt operations by scheme and outcome.",
	}, []string{"scheme", "op", "outcome"})

	// SessionsSwept counts sessions removed by cleanup sweeps.
	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beam",
		Subsystem: "sessions",
		Name:      "swept_total",
		Help:      "Expired sessions removed by cleanup.",
	})

	// Elicitations counts elicitation state transitions.
	Elicitations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beam",
		Subsystem: "oauth",
		Name:      "elicitations_total",
		Help:      "Elicitation requests by state transition.",
	}, []string{"state"})

	// HTTPDuration observes request latency by route and status.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "beam",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
)
