package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPollingMetrics() {
	r.FetchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "depgraph_fetches_total",
			Help: "Total number of data fetches by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	r.FetchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depgraph_fetch_duration_seconds",
			Help:    "Data fetch duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"kind"},
	)

	r.StaleResultsDiscardedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "depgraph_stale_results_discarded_total",
			Help: "Fetch results dropped because a newer fetch superseded them",
		},
		[]string{"kind"},
	)

	r.UpdatesPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "depgraph_updates_published_total",
			Help: "Total number of view updates published by state",
		},
		[]string{"state"},
	)

	r.ActiveViews = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "depgraph_active_views",
			Help: "Number of subject keys currently being polled",
		},
	)

	r.ActiveSubscriptions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "depgraph_active_subscriptions",
			Help: "Number of active view subscriptions",
		},
	)
}
