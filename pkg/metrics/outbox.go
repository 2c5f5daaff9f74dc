package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the outbox publisher loop.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	parked    *prometheus.CounterVec
	pruned    prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events published, by event type.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_failures_total",
			Help:      "Outbox publish attempts that failed, by event type.",
		}, []string{"event_type"}),
		parked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_parked_total",
			Help:      "Outbox events given up on, by event type and reason.",
		}, []string{"event_type", "reason"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_pruned_total",
			Help:      "Published outbox rows removed by retention.",
		}),
	}
	reg.MustRegister(m.published, m.failed, m.parked, m.pruned)
	return m
}

func (m *OutboxMetrics) Published(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(labelOrUnknown(eventType)).Inc()
}

func (m *OutboxMetrics) Failed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(labelOrUnknown(eventType)).Inc()
}

// Parked counts rows that stop being retried. reason is "rejected" or
// "exhausted".
func (m *OutboxMetrics) Parked(eventType, reason string) {
	if m == nil || m.parked == nil {
		return
	}
	m.parked.WithLabelValues(labelOrUnknown(eventType), labelOrUnknown(reason)).Inc()
}

func (m *OutboxMetrics) Pruned(n int64) {
	if m == nil || m.pruned == nil {
		return
	}
	m.pruned.Add(float64(n))
}
