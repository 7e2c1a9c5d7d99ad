package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsSaved counts item writes by zone and item type.
	ItemsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conndock_items_saved_total",
			Help: "Total number of items written to storage",
		},
		[]string{"zone", "type"},
	)

	// ItemsDeleted counts item removals by zone and deletion path (api|reconciliation).
	ItemsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conndock_items_deleted_total",
			Help: "Total number of items deleted from storage",
		},
		[]string{"zone", "path"},
	)

	// ReconciliationRuns counts orphan reconciliation sweeps per zone and outcome
	// (clean|ceiling|stuck).
	ReconciliationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conndock_reconciliation_runs_total",
			Help: "Total number of orphan reconciliation sweeps",
		},
		[]string{"zone", "outcome"},
	)

	// ReconciliationIterations observes how many passes a sweep needed to converge.
	ReconciliationIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conndock_reconciliation_iterations",
			Help:    "Iterations consumed by orphan reconciliation sweeps",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
		[]string{"zone"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conndock_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
