package action

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// emittedTotal counts action candidates produced.
	emittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "action",
		Name:      "candidates_emitted_total",
		Help:      "Action candidates produced by discovery",
	})

	// skippedTotal counts actions that produced nothing.
	// Labels: reason (prerequisite, required target, syntax error, panic, canceled)
	skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "action",
		Name:      "skipped_total",
		Help:      "Actions skipped during discovery, by reason",
	}, []string{"reason"})

	// overflowsTotal counts actions whose combinations exceeded the cap.
	overflowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "action",
		Name:      "combination_overflows_total",
		Help:      "Actions whose true combination count exceeded the effective cap",
	})
)
