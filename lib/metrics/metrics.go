// Package metrics exposes Prometheus collectors reporting engine activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lastupdated"

type Metrics struct {
	changes      *prometheus.CounterVec
	passes       *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	rebuilds     prometheus.Counter
	staleIndexes prometheus.Counter
	pending      prometheus.Gauge
}

// MustNewMetrics registers the collectors on reg and panics on a registration
// error. A nil reg uses a private registry, which keeps tests independent.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "changes_total",
			Help:      "Change records by classification.",
		}, []string{"class"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "passes_total",
			Help:      "Resolution passes by event kind.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "placeholder_outcomes_total",
			Help:      "Placeholder instances by outcome.",
		}, []string{"status"}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagination",
			Name:      "rebuilds_total",
			Help:      "Full pagination index rebuilds.",
		}),
		staleIndexes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagination",
			Name:      "stale_total",
			Help:      "Refreshes that found the index stale.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "throttle",
			Name:      "scheduled",
			Help:      "Resolution passes waiting for their window.",
		}),
	}
	reg.MustRegister(m.changes, m.passes, m.outcomes, m.rebuilds, m.staleIndexes, m.pending)
	return m
}

// The recorders below accept a nil receiver so callers can run without metrics.

func (m *Metrics) Change(class string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(class).Inc()
}

func (m *Metrics) Pass(kind string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(kind).Inc()
}

func (m *Metrics) Outcome(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.outcomes.WithLabelValues(status).Add(float64(n))
}

func (m *Metrics) Rebuild() {
	if m == nil {
		return
	}
	m.rebuilds.Inc()
}

func (m *Metrics) Stale() {
	if m == nil {
		return
	}
	m.staleIndexes.Inc()
}

func (m *Metrics) Scheduled(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
