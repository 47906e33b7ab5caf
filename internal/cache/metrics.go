package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lookupsTotal counts cache lookups.
	// Labels: tier (ast, resolution), result (hit, miss)
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by tier and result",
	}, []string{"tier", "result"})

	// invalidationsTotal counts resolution entries dropped by mutation notifications.
	invalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Resolution cache entries invalidated by component mutations",
	})

	// staleDiscardsTotal counts computed results not stored because an
	// invalidation raced the computation.
	staleDiscardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scopedsl",
		Subsystem: "cache",
		Name:      "stale_discards_total",
		Help:      "Computed resolutions discarded because a dependency changed during computation",
	})
)
