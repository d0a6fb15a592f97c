package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts lifecycle transitions and refund outcomes.
type OrderMetrics struct {
	transitions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	refundOutcomes  *prometheus.CounterVec
	dispatchDropped prometheus.Counter
}

// NewOrderMetrics registers the order lifecycle metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transition_rejections_total",
		Help: "Order transitions rejected before commit.",
	}, []string{"reason"})
	refundOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_refund_outcomes_total",
		Help: "Gateway refund attempts by outcome.",
	}, []string{"outcome"})
	dispatchDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_dispatch_dropped_total",
		Help: "Notification dispatches dropped after delivery failure.",
	})
	reg.MustRegister(transitions, rejections, refundOutcomes, dispatchDropped)
	return &OrderMetrics{
		transitions:     transitions,
		rejections:      rejections,
		refundOutcomes:  refundOutcomes,
		dispatchDropped: dispatchDropped,
	}
}

// IncTransition records a committed transition between two statuses.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncRejection records a rejected transition with its denial reason.
func (m *OrderMetrics) IncRejection(reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncRefundOutcome records a refund attempt outcome (succeeded/failed).
func (m *OrderMetrics) IncRefundOutcome(outcome string) {
	if m == nil || m.refundOutcomes == nil {
		return
	}
	m.refundOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDispatchDropped records a best-effort notification that was dropped.
func (m *OrderMetrics) IncDispatchDropped() {
	if m == nil || m.dispatchDropped == nil {
		return
	}
	m.dispatchDropped.Inc()
}
