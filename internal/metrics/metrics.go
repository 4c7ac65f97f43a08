// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the insight pipeline:
// - Pipeline runs and per-stage latency
// - Event store reads (MongoDB) and skipped documents
// - DuckDB query performance
// - Signals, insights and cooldown suppressions
// - API endpoint latency and throughput
// - WebSocket connections and NATS publishing

var (
	// Pipeline Metrics
	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of full pipeline runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300}, // Runs against large stores can take minutes
		},
		[]string{"mode"}, // "store", "trends"
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"mode", "status"}, // status: "success", "failure"
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "aggregate", "detect", "decide", "trends"
	)

	PipelineStageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	PipelineLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per mode",
		},
		[]string{"mode"},
	)

	// Event Store Metrics (MongoDB)
	EventsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_read_total",
			Help: "Total number of behavioral events read from the event store",
		},
		[]string{"kind"}, // "search", "click", "purchase"
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_skipped_total",
			Help: "Total number of event documents skipped during decoding",
		},
		[]string{"kind", "reason"}, // reason: "timestamp", "empty_query", "decode"
	)

	EventStoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstore_query_duration_seconds",
			Help:    "Duration of event store collection reads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	EventStoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_query_errors_total",
			Help: "Total number of event store read failures",
		},
		[]string{"collection", "error_type"},
	)

	CatalogSnapshotFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_snapshot_fallbacks_total",
			Help: "Total number of catalog reads served from the local snapshot",
		},
	)

	CatalogSnapshotSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_snapshot_saves_total",
			Help: "Total number of catalog snapshot writes",
		},
		[]string{"status"}, // "success", "failure"
	)

	// Database Metrics (DuckDB)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Detection and Decision Metrics
	SignalsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_emitted_total",
			Help: "Total number of signals emitted by detectors",
		},
		[]string{"type"}, // "SPIKE_DEMAND", "NO_RESULTS_SPIKE", "HIGH_INTEREST_LOW_CONVERSION"
	)

	InsightsSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_selected_total",
			Help: "Total number of insights selected for publication",
		},
		[]string{"channel", "cta_type"},
	)

	CooldownSuppressions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cooldown_suppressions_total",
			Help: "Total number of candidate insights suppressed by entity cooldown",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS Publishing Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of insight envelopes published to NATS",
		},
	)

	NATSPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Total number of failed NATS publish attempts",
		},
	)

	// Scheduler Metrics
	SchedulerRunsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_triggered_total",
			Help: "Total number of runs triggered by the weekly scheduler",
		},
		[]string{"status"}, // "success", "failure"
	)

	SchedulerStoresPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_stores_pending",
			Help: "Number of stores still awaiting a run for the current target week",
		},
	)
)

// RecordPipelineRun records a full pipeline run for one store.
func RecordPipelineRun(mode string, duration time.Duration, err error) {
	PipelineRunDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		PipelineRunsTotal.WithLabelValues(mode, "failure").Inc()
		return
	}
	PipelineRunsTotal.WithLabelValues(mode, "success").Inc()
	PipelineLastSuccess.WithLabelValues(mode).Set(float64(time.Now().Unix()))
}

// RecordPipelineStage records a single stage within a run.
func RecordPipelineStage(stage string, duration time.Duration, err error) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		PipelineStageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordEventsRead records events fetched from one event store read.
func RecordEventsRead(kind string, count int) {
	if count > 0 {
		EventsRead.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordEventSkipped records a document dropped during decoding.
func RecordEventSkipped(kind, reason string) {
	EventsSkipped.WithLabelValues(kind, reason).Inc()
}

// RecordEventStoreQuery records an event store collection read.
func RecordEventStoreQuery(collection string, duration time.Duration, err error) {
	EventStoreQueryDuration.WithLabelValues(collection).Observe(duration.Seconds())
	if err != nil {
		EventStoreQueryErrors.WithLabelValues(collection, truncateError(err)).Inc()
	}
}

// RecordCatalogSnapshotSave records the outcome of a snapshot write.
func RecordCatalogSnapshotSave(err error) {
	if err != nil {
		CatalogSnapshotSaves.WithLabelValues("failure").Inc()
		return
	}
	CatalogSnapshotSaves.WithLabelValues("success").Inc()
}

// RecordDBQuery records a DuckDB query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, truncateError(err)).Inc()
	}
}

// RecordSignals records detector output by signal type.
func RecordSignals(signalType string, count int) {
	if count > 0 {
		SignalsEmitted.WithLabelValues(signalType).Add(float64(count))
	}
}

// RecordInsightSelected records one insight surviving the decision stage.
func RecordInsightSelected(channel, ctaType string) {
	InsightsSelected.WithLabelValues(channel, ctaType).Inc()
}

// RecordCooldownSuppression records a candidate dropped by entity cooldown.
func RecordCooldownSuppression() {
	CooldownSuppressions.Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// TrackWSConnection tracks WebSocket client attach and detach.
func TrackWSConnection(inc bool) {
	if inc {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

// RecordWSBroadcast records messages fanned out to WebSocket clients.
func RecordWSBroadcast(clients int) {
	if clients > 0 {
		WSMessagesSent.Add(float64(clients))
	}
}

// RecordWSError records a WebSocket failure by category.
func RecordWSError(errorType string) {
	WSErrors.WithLabelValues(errorType).Inc()
}

// SetCircuitBreakerState maps a breaker state onto its gauge.
// 0=closed, 1=half-open, 2=open.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordBreakerTransition records a breaker state change.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordNATSPublish records a publish attempt and its outcome.
func RecordNATSPublish(err error) {
	if err != nil {
		NATSPublishErrors.Inc()
		return
	}
	NATSMessagesPublished.Inc()
}

// RecordSchedulerRun records a scheduler-triggered run outcome.
func RecordSchedulerRun(err error) {
	if err != nil {
		SchedulerRunsTriggered.WithLabelValues("failure").Inc()
		return
	}
	SchedulerRunsTriggered.WithLabelValues("success").Inc()
}

// truncateError bounds an error string for use as a label value, keeping
// the metric cardinality from exploding on long driver messages.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return msg
}
