// Package metrics holds the Prometheus collectors for check-in activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	dueGoals        prometheus.Gauge
	queueDepth      prometheus.Gauge
	sessionsActive  prometheus.Gauge
	sessionsOpened  *prometheus.CounterVec
	replies         *prometheus.CounterVec
	replyDuration   prometheus.Histogram
	mutations       *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	deadlineNotices prometheus.Counter
}

// New registers the collectors with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		dueGoals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gatekeeper",
			Name:      "due_goals",
			Help:      "Goals found due on the last scheduler tick.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gatekeeper",
			Name:      "checkin_queue_depth",
			Help:      "Goals waiting for a check-in session.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gatekeeper",
			Name:      "sessions_active",
			Help:      "Check-in sessions currently open (0 or 1).",
		}),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "sessions_opened_total",
			Help:      "Check-in sessions opened, by trigger.",
		}, []string{"trigger"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "replies_total",
			Help:      "User replies processed, by outcome.",
		}, []string{"outcome"}),
		replyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gatekeeper",
			Name:      "reply_duration_seconds",
			Help:      "Time spent in the reply processor.",
			Buckets:   prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "mutations_total",
			Help:      "Mutations requested by the model, by kind and result.",
		}, []string{"kind", "result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "template_fallbacks_total",
			Help:      "Messages produced from local templates instead of the model.",
		}, []string{"kind"}),
		deadlineNotices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Name:      "deadline_notices_total",
			Help:      "Approaching-deadline notifications sent.",
		}),
	}

	reg.MustRegister(
		m.dueGoals,
		m.queueDepth,
		m.sessionsActive,
		m.sessionsOpened,
		m.replies,
		m.replyDuration,
		m.mutations,
		m.fallbacks,
		m.deadlineNotices,
	)
	return m
}

func (m *Metrics) SetDueGoals(n int) {
	if m == nil {
		return
	}
	m.dueGoals.Set(float64(n))
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) SessionOpened(scheduled bool) {
	if m == nil {
		return
	}
	trigger := "manual"
	if scheduled {
		trigger = "scheduled"
	}
	m.sessionsOpened.WithLabelValues(trigger).Inc()
	m.sessionsActive.Set(1)
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Set(0)
}

func (m *Metrics) ReplyProcessed(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(outcome).Inc()
	m.replyDuration.Observe(took.Seconds())
}

func (m *Metrics) Mutation(kind string, applied bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "skipped"
	}
	m.mutations.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Fallback(kind string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) DeadlineNotice() {
	if m == nil {
		return
	}
	m.deadlineNotices.Inc()
}
