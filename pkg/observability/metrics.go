// Package observability provides Prometheus instrumentation for the engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	StepsTotal         *prometheus.CounterVec
	AutomaticHops      prometheus.Histogram
	TriggerInvocations *prometheus.CounterVec
	TriggerDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine collectors on the given
// registerer. Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowd",
			Name:      "steps_total",
			Help:      "Process steps by result.",
		}, []string{"result"}),
		AutomaticHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowd",
			Name:      "automatic_hops",
			Help:      "Automatic trigger hops followed per step.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}),
		TriggerInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowd",
			Name:      "trigger_invocations_total",
			Help:      "Trigger invocations by type and result.",
		}, []string{"type", "result"}),
		TriggerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowd",
			Name:      "trigger_duration_seconds",
			Help:      "Trigger invocation latency by type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.StepsTotal, m.AutomaticHops, m.TriggerInvocations, m.TriggerDuration)
	}
	return m
}

// ObserveStep records the outcome of a step ("ok", "rejected" or "failed").
func (m *Metrics) ObserveStep(result string, hops int) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(result).Inc()
	m.AutomaticHops.Observe(float64(hops))
}

// ObserveTrigger records a trigger invocation.
func (m *Metrics) ObserveTrigger(triggerType, result string, seconds float64) {
	if m == nil {
		return
	}
	m.TriggerInvocations.WithLabelValues(triggerType, result).Inc()
	m.TriggerDuration.WithLabelValues(triggerType).Observe(seconds)
}
