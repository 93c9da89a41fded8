// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the engine's Prometheus instruments. Register once per
// process; tests use distinct namespaces to avoid duplicate registration.
type Collector struct {
	factsProcessed    *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	providerFallbacks *prometheus.CounterVec

	workingMemorySize prometheus.Gauge
	evictionsTotal    prometheus.Counter

	patternsActive prometheus.Gauge
	patternsPruned prometheus.Counter

	sleepCyclesTotal   prometheus.Counter
	sleepCycleDuration prometheus.Histogram

	emotionalIntensity prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates and registers the engine's instruments under the
// given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.factsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_processed_total",
			Help:      "Total number of facts processed, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	c.processDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Input processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	c.providerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Total number of provider failures replaced by neutral fallbacks",
		},
		[]string{"op"},
	)

	c.workingMemorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "working_memory_size",
			Help:      "Current number of facts in working memory",
		},
	)

	c.evictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "working_memory_evictions_total",
			Help:      "Total number of facts evicted from working memory",
		},
	)

	c.patternsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "patterns_active",
			Help:      "Current number of cached patterns",
		},
	)

	c.patternsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patterns_pruned_total",
			Help:      "Total number of patterns pruned by consolidation",
		},
	)

	c.sleepCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sleep_cycles_total",
			Help:      "Total number of completed sleep cycles",
		},
	)

	c.sleepCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sleep_cycle_duration_seconds",
			Help:      "Sleep cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.emotionalIntensity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emotional_intensity",
			Help:      "L2 norm of the current emotional quadrant",
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordFactProcessed records one processed input with its outcome
// ("stored", "degraded" or "failed").
func (c *Collector) RecordFactProcessed(source, outcome string, duration time.Duration) {
	c.factsProcessed.WithLabelValues(source, outcome).Inc()
	c.processDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordProviderFallback records a provider failure that was absorbed by
// a neutral fallback.
func (c *Collector) RecordProviderFallback(op string) {
	c.providerFallbacks.WithLabelValues(op).Inc()
}

// SetWorkingMemorySize updates the working-memory size gauge.
func (c *Collector) SetWorkingMemorySize(n int) {
	c.workingMemorySize.Set(float64(n))
}

// RecordEvictions adds n to the eviction counter.
func (c *Collector) RecordEvictions(n uint64) {
	c.evictionsTotal.Add(float64(n))
}

// SetActivePatterns updates the cached-pattern gauge.
func (c *Collector) SetActivePatterns(n int) {
	c.patternsActive.Set(float64(n))
}

// RecordPatternsPruned adds n to the pruned-pattern counter.
func (c *Collector) RecordPatternsPruned(n int) {
	c.patternsPruned.Add(float64(n))
}

// RecordSleepCycle records one completed sleep cycle.
func (c *Collector) RecordSleepCycle(duration time.Duration) {
	c.sleepCyclesTotal.Inc()
	c.sleepCycleDuration.Observe(duration.Seconds())
}

// SetEmotionalIntensity updates the emotional-intensity gauge.
func (c *Collector) SetEmotionalIntensity(v float64) {
	c.emotionalIntensity.Set(v)
}
