package scope

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// repairsTotal counts malformed equipment entries found during resolution.
	// Labels: kind (unknown slot, malformed slot, unknown layer, malformed item, malformed equipment)
	repairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "scope",
		Name:      "corruptions_total",
		Help:      "Malformed equipment entries skipped, by kind",
	}, []string{"kind"})

	// securityRejectionsTotal counts keys dropped by the vocabulary whitelist.
	// Labels: kind (unknown slot, unknown layer, unknown socket)
	securityRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "scope",
		Name:      "security_rejections_total",
		Help:      "Identifiers rejected by the clothing whitelist, by kind",
	}, []string{"kind"})

	// predicateErrorsTotal counts filter predicates that failed to evaluate
	// and were treated as false.
	predicateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "scope",
		Name:      "predicate_errors_total",
		Help:      "Filter predicate evaluations that errored and counted as false",
	})

	// resolutionPanicsTotal counts resolutions aborted by a recovered panic.
	resolutionPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "scope",
		Name:      "resolution_panics_total",
		Help:      "Resolutions aborted by a recovered panic",
	})
)
