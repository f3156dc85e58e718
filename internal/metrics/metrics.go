// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call Monitor Metrics
	MonitorLinesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callmonitor_lines_total",
			Help: "Total number of call monitor lines read",
		},
		[]string{"device"},
	)

	MonitorEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callmonitor_events_total",
			Help: "Total number of recognized call monitor events",
		},
		[]string{"device", "kind"}, // kind: RING, CALL, CONNECT, DISCONNECT
	)

	MonitorParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callmonitor_parse_failures_total",
			Help: "Total number of call monitor lines that were not recognized",
		},
		[]string{"device"},
	)

	ReaderState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "callmonitor_reader_state",
			Help: "Stream reader state (0=disconnected, 1=connecting, 2=streaming, 3=reconnecting, 4=failed, 5=stopped)",
		},
		[]string{"device"},
	)

	ReaderReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callmonitor_reconnect_attempts_total",
			Help: "Total number of call monitor reconnect attempts",
		},
		[]string{"device"},
	)

	ReaderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callmonitor_reconnect_exhausted_total",
			Help: "Total number of times the reconnect policy was exhausted",
		},
		[]string{"device"},
	)

	// History Poll Metrics
	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "history_poll_duration_seconds",
			Help:    "Duration of TR-064 history poll cycles in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"device"},
	)

	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_poll_cycles_total",
			Help: "Total number of history poll cycles",
		},
		[]string{"device", "result"}, // result: success, failure
	)

	PollFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_fetch_errors_total",
			Help: "Total number of failed TR-064 sub-fetches",
		},
		[]string{"device", "action"},
	)

	PollServiceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_service_fallbacks_total",
			Help: "Total number of rejected TR-064 service variants",
		},
		[]string{"device", "action", "service"},
	)

	PollRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_records_skipped_total",
			Help: "Total number of history records skipped because they could not be parsed",
		},
		[]string{"device", "action"},
	)

	PollLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "history_poll_last_success_timestamp",
			Help: "Unix timestamp of the last successful poll cycle",
		},
		[]string{"device"},
	)

	// Store Metrics
	StoreCalls = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_calls",
			Help: "Current number of calls held in the merge store",
		},
		[]string{"device"},
	)

	StoreVoicemails = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_voicemails",
			Help: "Current number of voicemails held in the merge store",
		},
		[]string{"device"},
	)

	StoreInserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_inserts_total",
			Help: "Total number of call inserts by outcome",
		},
		[]string{"device", "source", "result"}, // result: added, replaced, duplicate
	)

	StoreEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_evictions_total",
			Help: "Total number of calls evicted by the retention sweep",
		},
		[]string{"device"},
	)

	// TR-064 Client Metrics
	TR064RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tr064_request_duration_seconds",
			Help:    "Duration of TR-064 action calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"action", "result"},
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
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
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

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket broadcasts dropped because a buffer was full",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Publishing Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of call events published to the message bus",
		},
		[]string{"device", "result"}, // result: success, error, dropped
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordPollCycle records the outcome of one history poll cycle.
func RecordPollCycle(device string, duration time.Duration, err error) {
	PollDuration.WithLabelValues(device).Observe(duration.Seconds())
	if err != nil {
		PollCycles.WithLabelValues(device, "failure").Inc()
		return
	}
	PollCycles.WithLabelValues(device, "success").Inc()
	PollLastSuccess.WithLabelValues(device).Set(float64(time.Now().Unix()))
}

// RecordStoreSize updates the store gauges for device.
func RecordStoreSize(device string, calls, voicemails int) {
	StoreCalls.WithLabelValues(device).Set(float64(calls))
	StoreVoicemails.WithLabelValues(device).Set(float64(voicemails))
}

// RecordInsert records the outcome of a call insert.
func RecordInsert(device, source, result string, n int) {
	if n <= 0 {
		return
	}
	StoreInserts.WithLabelValues(device, source, result).Add(float64(n))
}

// RecordTR064Request records one TR-064 action call.
func RecordTR064Request(action string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	TR064RequestDuration.WithLabelValues(action, result).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight API request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
