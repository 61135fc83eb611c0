// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hydroengine_api_request_duration_seconds",
			Help:    "API request latency; most time is spent waiting on the backend",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hydroengine_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Earth Engine backend
	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_backend_calls_total",
			Help: "Calls to the Earth Engine REST API",
		},
		[]string{"operation", "outcome"}, // outcome: ok, client_error, server_error, transport_error
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hydroengine_backend_call_duration_seconds",
			Help:    "Latency of Earth Engine REST API calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	BackendTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_backend_token_refreshes_total",
			Help: "OAuth2 access token fetches for the service account",
		},
		[]string{"result"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hydroengine_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Map cache
	MapCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_map_cache_hits_total",
			Help: "Map id cache hits",
		},
		[]string{"tier"}, // memory, badger
	)

	MapCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hydroengine_map_cache_misses_total",
			Help: "Map id cache misses",
		},
	)

	MapCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hydroengine_map_cache_entries",
			Help: "Entries held in the in-memory map cache tier",
		},
	)

	// Export tasks
	ExportTasksSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_export_tasks_submitted_total",
			Help: "Export tasks submitted to the backend",
		},
		[]string{"model"},
	)

	ExportTasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydroengine_export_tasks_finished_total",
			Help: "Export tasks observed in a terminal state",
		},
		[]string{"state"},
	)

	ExportTasksTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hydroengine_export_tasks_tracked",
			Help: "Export tasks currently polled by the task watcher",
		},
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, endpoint, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordBackendCall records one Earth Engine REST call.
func RecordBackendCall(operation, outcome string, d time.Duration) {
	BackendCalls.WithLabelValues(operation, outcome).Inc()
	BackendCallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordMapCacheLookup records a hit in tier, or a miss when tier is "".
func RecordMapCacheLookup(tier string) {
	if tier == "" {
		MapCacheMisses.Inc()
		return
	}
	MapCacheHits.WithLabelValues(tier).Inc()
}
