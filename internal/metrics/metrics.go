// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package metrics holds the Prometheus collectors for FinTrack Guard.
//
// Collectors are registered on the default registry through promauto and
// exposed by the API at /metrics. Record* helpers keep label values
// consistent across callers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decision engine
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_evaluations_total",
			Help: "Signals evaluated by the decision engine, by signal and resulting action",
		},
		[]string{"signal", "action"}, // signal: location|transaction
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_verdicts_total",
			Help: "Detector verdicts by kind",
		},
		[]string{"kind"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_evaluation_duration_seconds",
			Help:    "Wall time of one evaluation including collaborator calls",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30, 60},
		},
		[]string{"signal"},
	)

	// DegradedEvaluations counts transaction evaluations that ran without a
	// recent-transaction window, so the burst rule could not fire.
	DegradedEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_degraded_evaluations_total",
			Help: "Evaluations performed with an empty recent window because the store was unavailable",
		},
		[]string{"reason"}, // error|timeout|breaker_open
	)

	RejectedSamples = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_rejected_samples_total",
			Help: "Location samples not admitted into history",
		},
	)

	TrackedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_tracked_accounts",
			Help: "Accounts with active location tracking",
		},
	)

	WindowBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_window_fetch_breaker_state",
			Help: "Recent-window fetch circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Step-up challenges
	ChallengesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_challenges_total",
			Help: "Step-up challenges by result",
		},
		[]string{"result"}, // approved|denied|timeout|cancelled|error
	)

	PendingChallenges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_pending_challenges",
			Help: "Step-up challenges awaiting a response",
		},
	)

	// Alerts
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_alerts_sent_total",
			Help: "Alert deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	AlertsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_alerts_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full",
		},
	)

	AlertQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_alert_queue_depth",
			Help: "Alerts waiting for delivery",
		},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_websocket_clients",
			Help: "Connected alert stream clients",
		},
	)

	IntegrityAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_integrity_assessments_total",
			Help: "Device integrity assessments by result",
		},
		[]string{"result"}, // secure|compromised
	)

	// Ingestion
	IngestedSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_ingested_samples_total",
			Help: "Location samples consumed from the ingestion topic",
		},
		[]string{"status"}, // processed|rejected|failed
	)

	// Store
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_store_operation_duration_seconds",
			Help:    "Durable store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_store_errors_total",
			Help: "Durable store operation failures",
		},
		[]string{"backend", "operation"},
	)

	WindowCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_window_cache_results_total",
			Help: "Recent-window cache lookups by result",
		},
		[]string{"result"}, // hit|miss|error
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordEvaluation records the outcome and latency of one evaluation.
func RecordEvaluation(signal, action, verdict string, duration time.Duration) {
	EvaluationsTotal.WithLabelValues(signal, action).Inc()
	VerdictsTotal.WithLabelValues(verdict).Inc()
	EvaluationDuration.WithLabelValues(signal).Observe(duration.Seconds())
}

// RecordDegraded counts an evaluation that fell back to an empty window.
func RecordDegraded(reason string) {
	DegradedEvaluations.WithLabelValues(reason).Inc()
}

// RecordChallenge counts a finished step-up challenge.
func RecordChallenge(result string) {
	ChallengesTotal.WithLabelValues(result).Inc()
}

// RecordAlertDelivery counts one delivery attempt on a channel.
func RecordAlertDelivery(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(channel, status).Inc()
}

// RecordStoreOperation observes a store call.
func RecordStoreOperation(backend, operation string, start time.Time, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(backend, operation).Inc()
	}
}
