package emergent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts discovery runs by strategy.
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldmem",
			Subsystem: "emergent",
			Name:      "runs_total",
			Help:      "Total discovery strategy runs",
		},
		[]string{"strategy"},
	)

	// insightsTotal counts emitted insights by strategy.
	insightsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldmem",
			Subsystem: "emergent",
			Name:      "insights_total",
			Help:      "Total insights emitted by strategy",
		},
		[]string{"strategy"},
	)
)
