package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values shared by layout and fetch counters
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RecordLayout records a layout computation with its duration
func (r *Registry) RecordLayout(status string, duration time.Duration, nodes int) {
	r.LayoutComputationsTotal.WithLabelValues(status).Inc()
	r.LayoutDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		r.LayoutNodesTotal.Observe(float64(nodes))
	}
}

// RecordCacheHit records a layout served from cache
func (r *Registry) RecordCacheHit() {
	r.LayoutCacheHitsTotal.Inc()
}

// RecordCacheMiss records a layout cache miss
func (r *Registry) RecordCacheMiss() {
	r.LayoutCacheMissesTotal.Inc()
}

// RecordFetch records a graph or satisfaction fetch
func (r *Registry) RecordFetch(kind, status string, duration time.Duration) {
	r.FetchesTotal.WithLabelValues(kind, status).Inc()
	r.FetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStaleDiscard records a fetch result dropped as superseded
func (r *Registry) RecordStaleDiscard(kind string) {
	r.StaleResultsDiscardedTotal.WithLabelValues(kind).Inc()
}

// RecordUpdate records a published view update
func (r *Registry) RecordUpdate(state string) {
	r.UpdatesPublishedTotal.WithLabelValues(state).Inc()
}

// SetActiveViews sets the number of polled subject keys
func (r *Registry) SetActiveViews(n int) {
	r.ActiveViews.Set(float64(n))
}

// AddSubscriptions adjusts the number of live subscriptions by delta
func (r *Registry) AddSubscriptions(delta int) {
	r.ActiveSubscriptions.Add(float64(delta))
}

// SampleHeap refreshes the heap gauges from runtime.MemStats
func (r *Registry) SampleHeap() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.HeapAllocBytes.Set(float64(mem.HeapAlloc))
	r.HeapSysBytes.Set(float64(mem.HeapSys))
}

// Handler serves the registry in the Prometheus exposition format.
// Heap gauges are sampled on every scrape.
func (r *Registry) Handler() http.Handler {
	inner := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.SampleHeap()
		inner.ServeHTTP(w, req)
	})
}
