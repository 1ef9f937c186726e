// Package metrics holds the Prometheus collectors for the pipeline. They
// register with the default registry and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchRuns counts dispatch calls by mode (live, dry_run).
	DispatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandlab_dispatch_runs_total",
			Help: "Total number of campaign dispatch runs",
		},
		[]string{"mode"},
	)

	// DispatchMessages counts per-recipient outcomes (sent, failed).
	DispatchMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandlab_dispatch_messages_total",
			Help: "Total number of campaign messages by outcome",
		},
		[]string{"outcome"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandlab_ai_requests_total",
			Help: "Total number of AI backend requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	WatermarkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brandlab_watermark_duration_seconds",
			Help:    "Time spent compositing watermarks onto generated images",
			Buckets: prometheus.DefBuckets,
		},
	)
)
