// Package metrics exposes Prometheus collectors for the metric cache, the
// document store and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests      *prometheus.CounterVec
	CounterCacheHits     prometheus.Counter
	CounterCacheMisses   prometheus.Counter
	CounterInvalidations prometheus.Counter
	CounterMutations     *prometheus.CounterVec
	CounterBadgesEarned  *prometheus.CounterVec

	// gauges
	GaugeRequests     prometheus.Gauge
	GaugeCacheEntries prometheus.Gauge
	GaugeSessions     prometheus.Gauge

	// histograms
	HistRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("replift", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("replift", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of API requests",
		}, []string{"method", "route", "status"}),
		CounterCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Metric lookups served from the cache",
		}),
		CounterCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Metric lookups that had to be computed",
		}),
		CounterInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_invalidations_total",
			Help:      "Times the whole cache was flushed",
		}),
		CounterMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_mutations_total",
			Help:      "Document store mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		CounterBadgesEarned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "badges_earned_total",
			Help:      "Achievements newly earned, by badge",
		}, []string{"badge"}),

		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		GaugeCacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_entries",
			Help:      "Entries held by the metric cache",
		}),
		GaugeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Sessions in the training log",
		}),

		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route"}),
	}
}

// Mutation records a store mutation.
func (m *Manager) Mutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CounterMutations.WithLabelValues(op, outcome).Inc()
}

// CacheHit implements memo.Observer.
func (m *Manager) CacheHit(string) {
	m.CounterCacheHits.Inc()
}

// CacheMiss implements memo.Observer.
func (m *Manager) CacheMiss(string) {
	m.CounterCacheMisses.Inc()
	m.GaugeCacheEntries.Inc()
}

// CacheInvalidated implements memo.Observer.
func (m *Manager) CacheInvalidated(int) {
	m.CounterInvalidations.Inc()
	m.GaugeCacheEntries.Set(0)
}
