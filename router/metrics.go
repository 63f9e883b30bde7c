package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "datastore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "router").
	Subsystem string

	ConstLabels prometheus.Labels

	// Buckets are the drain duration histogram buckets.
	// Default: prometheus.DefBuckets
	Buckets []float64
}

type MetricsOption func(*MetricsConfig)

func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// Metrics counts router work. A nil *Metrics records nothing.
type Metrics struct {
	blockRuns    prometheus.Counter
	blockErrors  prometheus.Counter
	drains       prometheus.Counter
	asyncFlushes prometheus.Counter
	drainSeconds prometheus.Histogram
}

// NewMetrics registers the router metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "datastore",
		Subsystem: "router",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		})
	}

	return &Metrics{
		blockRuns:    counter("block_runs_total", "Total number of computed block executions"),
		blockErrors:  counter("block_errors_total", "Total number of computed blocks that returned an error"),
		drains:       counter("drains_total", "Total number of completed propagation passes"),
		asyncFlushes: counter("async_flushes_total", "Total number of async batches flushed"),
		drainSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "drain_seconds",
			Help:        "Propagation pass duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
	}
}

func (m *Metrics) blockRan() {
	if m == nil {
		return
	}
	m.blockRuns.Inc()
}

func (m *Metrics) blockFailed() {
	if m == nil {
		return
	}
	m.blockErrors.Inc()
}

func (m *Metrics) drained(d time.Duration) {
	if m == nil {
		return
	}
	m.drains.Inc()
	m.drainSeconds.Observe(d.Seconds())
}

func (m *Metrics) flushed() {
	if m == nil {
		return
	}
	m.asyncFlushes.Inc()
}
