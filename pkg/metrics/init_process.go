package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initProcessMetrics covers the watcher process itself. Uptime and goroutine
// count are read at collection time; heap gauges are sampled per scrape by
// SampleHeap so one ReadMemStats serves both.
func (r *Registry) initProcessMetrics() {
	factory := promauto.With(r.registry)

	r.UptimeSeconds = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "depgraph_watch_uptime_seconds",
			Help: "Seconds since the watcher created its metrics registry",
		},
		func() float64 { return time.Since(r.startTime).Seconds() },
	)

	r.Goroutines = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "depgraph_watch_goroutines",
			Help: "Goroutines in the watcher, one per polled view plus fetch workers",
		},
		func() float64 { return float64(runtime.NumGoroutine()) },
	)

	r.HeapAllocBytes = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "depgraph_watch_heap_alloc_bytes",
			Help: "Heap bytes held by layouts, cached graphs and in-flight fetches at the last scrape",
		},
	)

	r.HeapSysBytes = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "depgraph_watch_heap_sys_bytes",
			Help: "Heap bytes obtained from the OS at the last scrape",
		},
	)
}
