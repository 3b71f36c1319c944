package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queriesTotal counts orchestrated queries by type.
	// Labels: type (precision, discovery, creative, hybrid)
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldmem",
			Subsystem: "engine",
			Name:      "queries_total",
			Help:      "Total orchestrated queries by query type",
		},
		[]string{"type"},
	)

	// queryDuration tracks end-to-end query latency.
	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldmem",
			Subsystem: "engine",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// queryInsightsTotal counts insights emitted inline by queries, as
	// opposed to scheduled discovery runs.
	queryInsightsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fieldmem",
			Subsystem: "engine",
			Name:      "query_insights_total",
			Help:      "Insights emitted inline by discovery and creative queries",
		},
	)
)
