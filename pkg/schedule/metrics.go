package schedule

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics encapsulates Prometheus instrumentation for one schedule. The
// registry is private; the embedding process decides whether and how to
// expose it. A nil *Metrics disables instrumentation entirely.
type Metrics struct {
	registry *prometheus.Registry

	commits        *prometheus.CounterVec
	retracts       prometheus.Counter
	scheduledOps   prometheus.Gauge
	commitDuration prometheus.Histogram
}

// NewMetrics registers the substrate collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedcore_commits_total",
		Help: "Commit attempts by outcome",
	}, []string{"outcome"})

	retracts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedcore_retracts_total",
		Help: "Total number of retracted operations",
	})

	scheduledOps := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedcore_operations_scheduled",
		Help: "Operations currently in the scheduled state",
	})

	commitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedcore_commit_duration_seconds",
		Help:    "Wall time spent in Commit",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(commits, retracts, scheduledOps, commitDuration)

	return &Metrics{
		registry:       registry,
		commits:        commits,
		retracts:       retracts,
		scheduledOps:   scheduledOps,
		commitDuration: commitDuration,
	}
}

// Registry exposes the underlying registry for scraping by the host
// process.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observeCommit(outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome.String()).Inc()
	m.commitDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeRetract() {
	if m == nil {
		return
	}
	m.retracts.Inc()
}

func (m *Metrics) setScheduled(n int) {
	if m == nil {
		return
	}
	m.scheduledOps.Set(float64(n))
}
