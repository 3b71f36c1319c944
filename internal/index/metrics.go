package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// patternsGauge tracks the number of stored patterns.
	patternsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fieldmem",
			Subsystem: "index",
			Name:      "patterns",
			Help:      "Number of patterns currently stored",
		},
	)

	// storesTotal counts store operations by outcome.
	// Labels: outcome (insert, merge, bulk, rejected)
	storesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldmem",
			Subsystem: "index",
			Name:      "stores_total",
			Help:      "Total store operations by outcome",
		},
		[]string{"outcome"},
	)

	// queriesTotal counts queries by kind.
	// Labels: kind (query, category, strength, similar)
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldmem",
			Subsystem: "index",
			Name:      "queries_total",
			Help:      "Total index queries by kind",
		},
		[]string{"kind"},
	)

	// queryDuration tracks query latency.
	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldmem",
			Subsystem: "index",
			Name:      "query_duration_seconds",
			Help:      "Duration of index queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
