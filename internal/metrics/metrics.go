// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RiotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_riot_requests_total",
			Help: "Gameplay API requests by endpoint and HTTP status",
		},
		[]string{"endpoint", "code"},
	)

	RiotLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewind_riot_request_seconds",
			Help:    "Gameplay API request latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"endpoint"},
	)

	Jobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_jobs_total",
			Help: "Orchestrator runs by outcome",
		},
		[]string{"outcome"}, // cached, complete, resumed, error kind
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rewind_job_duration_seconds",
			Help:    "Wall time of orchestrator runs that did work",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	Batches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewind_batches_total",
			Help: "Fetch/aggregate batches checkpointed",
		},
	)

	MatchesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_matches_fetched_total",
			Help: "Match detail fetches by result",
		},
		[]string{"result"}, // ok, skipped
	)

	NarrativeSlots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_narrative_slots_total",
			Help: "Narrative slot generations by result",
		},
		[]string{"result"}, // ok, degraded, skipped
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_cache_lookups_total",
			Help: "Result cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rewind_queue_depth",
			Help: "Jobs waiting in the background queue",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
