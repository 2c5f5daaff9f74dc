package metrics

import "github.com/prometheus/client_golang/prometheus"

// Order sources.
const (
	SourceCheckout = "checkout"
	SourceBuyNow   = "buy_now"
)

// CheckoutMetrics tracks order creation and stock anomalies.
type CheckoutMetrics struct {
	orders          *prometheus.CounterVec
	failures        *prometheus.CounterVec
	floorViolations prometheus.Counter
	pointsAwarded   prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by source.",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_failures_total",
			Help:      "Rejected checkout attempts, by error code.",
		}, []string{"source", "code"}),
		floorViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_floor_violations_total",
			Help:      "Stock decrements that would have gone negative and were clamped to zero.",
		}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loyalty_points_awarded_total",
			Help:      "Loyalty points credited for purchases.",
		}),
	}
	reg.MustRegister(m.orders, m.failures, m.floorViolations, m.pointsAwarded)
	return m
}

// OrderCreated records a committed order and the points it earned.
func (m *CheckoutMetrics) OrderCreated(source string, points int) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(labelOrUnknown(source)).Inc()
	m.pointsAwarded.Add(float64(points))
}

// Failed records a rejected attempt.
func (m *CheckoutMetrics) Failed(source, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(labelOrUnknown(source), labelOrUnknown(code)).Inc()
}

// FloorViolation records a clamped stock decrement.
func (m *CheckoutMetrics) FloorViolation() {
	if m == nil || m.floorViolations == nil {
		return
	}
	m.floorViolations.Inc()
}
