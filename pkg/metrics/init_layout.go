package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.LayoutComputationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "depgraph_layout_computations_total",
			Help: "Total number of layout computations",
		},
		[]string{"status"},
	)

	r.LayoutDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "depgraph_layout_duration_seconds",
			Help:    "Layout computation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.LayoutNodesTotal = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "depgraph_layout_nodes",
			Help:    "Number of visible nodes per layout",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000},
		},
	)

	r.LayoutCacheHitsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "depgraph_layout_cache_hits_total",
			Help: "Total number of layout cache hits",
		},
	)

	r.LayoutCacheMissesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "depgraph_layout_cache_misses_total",
			Help: "Total number of layout cache misses",
		},
	)
}
