// Package metrics registers Prometheus metrics for the trade lifecycle kernel.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the kernel.
type Metrics struct {
	TransitionsApplied *prometheus.CounterVec
	TransitionsBlocked *prometheus.CounterVec
	AutomationFired    *prometheus.CounterVec
	OutboxPublished    prometheus.Counter
	AttemptDuration    prometheus.Histogram
}

// New creates all kernel metrics and registers them on reg. Tests pass a
// fresh registry so engines do not collide on metric names.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelane_transitions_applied_total",
			Help: "Applied trade state transitions, by target state",
		}, []string{"to_state"}),
		TransitionsBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelane_transitions_blocked_total",
			Help: "Blocked trade state transition attempts, by reason code",
		}, []string{"reason"}),
		AutomationFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradelane_automation_fired_total",
			Help: "Automation rule firings, by rule name",
		}, []string{"rule"}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "tradelane_outbox_published_total",
			Help: "Events drained from the outbox to the external feed",
		}),
		AttemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradelane_attempt_duration_seconds",
			Help:    "End-to-end duration of attemptTransition calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveAttempt records one attemptTransition call.
func (m *Metrics) ObserveAttempt(start time.Time) {
	m.AttemptDuration.Observe(time.Since(start).Seconds())
}
