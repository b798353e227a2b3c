package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics records payment charges, order submissions and status changes.
type CheckoutMetrics struct {
	chargeDuration *prometheus.HistogramVec
	charges        *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	chargeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bakery_payment_charge_duration_seconds",
		Help:    "Latency of payment gateway charges in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bakery_payment_charges_total",
		Help: "Payment charges by outcome.",
	}, []string{"outcome"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bakery_order_submissions_total",
		Help: "Order submissions by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bakery_order_status_transitions_total",
		Help: "Order status changes applied by staff.",
	}, []string{"from", "to"})
	reg.MustRegister(chargeDuration, charges, submissions, transitions)
	return &CheckoutMetrics{
		chargeDuration: chargeDuration,
		charges:        charges,
		submissions:    submissions,
		transitions:    transitions,
	}
}

// ObserveCharge records one charge attempt and its latency.
func (m *CheckoutMetrics) ObserveCharge(outcome string, duration time.Duration) {
	if m == nil || m.charges == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.charges.WithLabelValues(label).Inc()
	m.chargeDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncOrderSubmission counts an order submission by result.
func (m *CheckoutMetrics) IncOrderSubmission(result string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncStatusTransition counts an applied status change.
func (m *CheckoutMetrics) IncStatusTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
