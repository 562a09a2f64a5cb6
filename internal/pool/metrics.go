package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes refresh and sampling counters. A nil *Metrics is a no-op.
type Metrics struct {
	refreshes *prometheus.CounterVec
	failures  prometheus.Counter
	active    *prometheus.GaugeVec
	fallbacks *prometheus.CounterVec
}

// NewMetrics registers the pool collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizpool",
			Name:      "refresh_total",
			Help:      "Persisted pool refreshes by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizpool",
			Name:      "refresh_failures_total",
			Help:      "Refresh attempts that could not load the master bank or persist the pool.",
		}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quizpool",
			Name:      "active_questions",
			Help:      "Questions in the active pool per level after the last refresh.",
		}, []string{"level"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizpool",
			Name:      "sample_fallback_total",
			Help:      "Samples served from the master bank because the pool was too small.",
		}, []string{"level"}),
	}
	reg.MustRegister(m.refreshes, m.failures, m.active, m.fallbacks)
	return m
}

func (m *Metrics) observeRefresh(kind string, p Pool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(kind).Inc()
	m.active.Reset()
	for level, n := range p.CountByLevel() {
		m.active.WithLabelValues(level).Set(float64(n))
	}
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) observeFallback(level string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(level).Inc()
}
