// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package metrics declares the Prometheus collectors for the catalog
// pipeline and small Record helpers used by the components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog client
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_catalog_requests_total",
			Help: "Catalog API requests by endpoint family and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, http_error, transport_error, decode_error, rejected
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_catalog_request_duration_seconds",
			Help:    "Catalog API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CatalogRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_catalog_rate_limited_total",
			Help: "HTTP 429 responses received from the catalog API",
		},
	)

	PersonCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_person_cache_lookups_total",
			Help: "Person detail cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinematch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Import
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_imports_total",
			Help: "Movie imports by outcome",
		},
		[]string{"outcome"}, // imported, already_present, source_unavailable, failed
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinematch_import_duration_seconds",
			Help:    "Wall time of a single movie import, fetch phase included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ImportSkippedActors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_import_skipped_actors_total",
			Help: "Cast entries dropped because the person fetch or transform failed",
		},
	)

	// Crawl
	CrawlPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_crawl_pages_total",
			Help: "Popular-list pages processed by outcome",
		},
		[]string{"outcome"}, // ok, empty, failed
	)

	CrawlDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_crawl_dispatched_total",
			Help: "Import tasks dispatched by the crawler",
		},
	)

	// Refresh
	RefreshDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinematch_refresh_dispatched_total",
			Help: "Stat refresh tasks dispatched",
		},
	)

	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_refresh_total",
			Help: "Single movie stat refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// Tasks
	TasksSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_tasks_submitted_total",
			Help: "Tasks submitted to the queue",
		},
		[]string{"task"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_tasks_completed_total",
			Help: "Tasks executed by workers by terminal status",
		},
		[]string{"task", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_task_duration_seconds",
			Help:    "Task execution time on the worker",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"task"},
	)

	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinematch_tasks_in_flight",
			Help: "Tasks currently executing in this process",
		},
	)

	// Scheduler
	ScheduleFirings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_schedule_firings_total",
			Help: "Recurring schedule entries fired",
		},
		[]string{"entry", "result"}, // submitted, error
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinematch_api_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinematch_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordCatalogRequest records one catalog API call.
func RecordCatalogRequest(endpoint, outcome string, duration time.Duration) {
	CatalogRequests.WithLabelValues(endpoint, outcome).Inc()
	if duration > 0 {
		CatalogRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// RecordImport records a finished import. An error counts as "failed".
func RecordImport(outcome string, duration time.Duration, skippedActors int, err error) {
	if err != nil {
		outcome = "failed"
	}
	ImportsTotal.WithLabelValues(outcome).Inc()
	ImportDuration.Observe(duration.Seconds())
	if skippedActors > 0 {
		ImportSkippedActors.Add(float64(skippedActors))
	}
}

// RecordCrawlPage records the outcome of one popular-list page.
func RecordCrawlPage(outcome string, dispatched int) {
	CrawlPages.WithLabelValues(outcome).Inc()
	if dispatched > 0 {
		CrawlDispatched.Add(float64(dispatched))
	}
}

// RecordTaskCompletion records a task that reached a terminal status.
func RecordTaskCompletion(task, status string, duration time.Duration) {
	TasksCompleted.WithLabelValues(task, status).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
