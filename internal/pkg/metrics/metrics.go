// Package metrics provides Prometheus metrics for the recipe-costing service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRunsTotal tracks import runs by status
	ImportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipe_costing",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of catalog import runs by status",
		},
		[]string{"status"},
	)

	// ImportRunDuration tracks import run duration in seconds
	ImportRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recipe_costing",
			Subsystem: "import",
			Name:      "run_duration_seconds",
			Help:      "Duration of catalog import runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// ImportRowsTotal tracks imported rows
	ImportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipe_costing",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total number of rows written to the catalog by imports",
		},
	)

	// ReconcileDecisionsTotal tracks similar-name decisions by scope, choice and origin
	ReconcileDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipe_costing",
			Subsystem: "reconcile",
			Name:      "decisions_total",
			Help:      "Total number of similar-name decisions by scope, choice and origin",
		},
		[]string{"scope", "choice", "origin"},
	)

	// PriceResolutionsTotal tracks price lookups by the level that answered
	PriceResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipe_costing",
			Subsystem: "pricing",
			Name:      "resolutions_total",
			Help:      "Total number of ingredient price resolutions by level",
		},
		[]string{"level"},
	)

	// ImportQueueDepth tracks queued import jobs
	ImportQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recipe_costing",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of import jobs waiting in the queue",
		},
	)

	// CacheRequestsTotal tracks product-list cache lookups
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipe_costing",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of product cache lookups by backend and result",
		},
		[]string{"backend", "result"},
	)
)

// RecordImportRun records a finished import run
func RecordImportRun(status string, rows int, seconds float64) {
	ImportRunsTotal.WithLabelValues(status).Inc()
	ImportRunDuration.Observe(seconds)
	ImportRowsTotal.Add(float64(rows))
}

// RecordDecision records a similar-name decision
func RecordDecision(scope string, useExisting, memoized bool) {
	choice := "create"
	if useExisting {
		choice = "existing"
	}
	origin := "prompt"
	if memoized {
		origin = "apply_to_all"
	}
	ReconcileDecisionsTotal.WithLabelValues(scope, choice, origin).Inc()
}

// RecordPriceResolution records which lookup level answered a price request
func RecordPriceResolution(level string) {
	PriceResolutionsTotal.WithLabelValues(level).Inc()
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequestsTotal.WithLabelValues(backend, result).Inc()
}
