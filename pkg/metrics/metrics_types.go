package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Layout Metrics
	LayoutComputationsTotal *prometheus.CounterVec
	LayoutDuration          prometheus.Histogram
	LayoutNodesTotal        prometheus.Histogram
	LayoutCacheHitsTotal    prometheus.Counter
	LayoutCacheMissesTotal  prometheus.Counter

	// Polling Metrics
	FetchesTotal               *prometheus.CounterVec
	FetchDuration              *prometheus.HistogramVec
	StaleResultsDiscardedTotal *prometheus.CounterVec
	UpdatesPublishedTotal      *prometheus.CounterVec
	ActiveViews                prometheus.Gauge
	ActiveSubscriptions        prometheus.Gauge

	// Process Metrics
	UptimeSeconds  prometheus.GaugeFunc
	Goroutines     prometheus.GaugeFunc
	HeapAllocBytes prometheus.Gauge
	HeapSysBytes   prometheus.Gauge

	startTime time.Time
	registry  *prometheus.Registry
	mu        sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry:  reg,
		startTime: time.Now(),
	}

	// Initialize all metrics
	r.initLayoutMetrics()
	r.initPollingMetrics()
	r.initProcessMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
