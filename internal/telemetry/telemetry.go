// Package telemetry holds the Prometheus counters exported on /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Classifications tracks classifier verdicts per friction type
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flywheel_classifications_total",
			Help: "Total number of friction descriptions classified",
		},
		[]string{"type"},
	)

	// FrictionsStored tracks frictions written to the store per stage
	FrictionsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flywheel_frictions_stored_total",
			Help: "Total number of frictions stored",
		},
		[]string{"stage", "priority"},
	)

	// AnalysesStored tracks saved funnel periods
	AnalysesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flywheel_analyses_stored_total",
			Help: "Total number of funnel analyses saved",
		},
	)

	// InboxFiles tracks inbox files by outcome (processed, failed)
	InboxFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flywheel_inbox_files_total",
			Help: "Total number of inbox files handled",
		},
		[]string{"result"},
	)

	// HTTPRequests tracks API requests by route and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flywheel_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPLatency tracks API request latency
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flywheel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Inbox results.
const (
	ResultProcessed = "processed"
	ResultFailed    = "failed"
)
