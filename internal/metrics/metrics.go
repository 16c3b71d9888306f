package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketplace"

// Metrics groups the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ordersPlaced    *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	notifyDropped   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	checkoutSeconds prometheus.Histogram
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "placed_total",
			Help: "Orders committed, by kind and payment method.",
		}, []string{"kind", "payment_method"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "checkouts_total",
			Help: "Cart checkouts by outcome.",
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "compensations_total",
			Help: "Compensating actions run after a failed checkout step.",
		}, []string{"step", "result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payments", Name: "verifications_total",
			Help: "Payment verifications by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "transitions_total",
			Help: "Applied status transitions.",
		}, []string{"kind", "from", "to"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payments", Name: "refunds_total",
			Help: "Refund attempts by result.",
		}, []string{"result"}),
		notifyDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notify", Name: "dropped_total",
			Help: "Notifications that were never enqueued.",
		}, []string{"event", "reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkoutSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "orders", Name: "checkout_duration_seconds",
			Help:    "Time spent placing a whole cart.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(
		m.ordersPlaced, m.checkouts, m.compensations, m.verifications, m.transitions,
		m.refunds, m.notifyDropped, m.httpRequests, m.httpDuration, m.checkoutSeconds,
	)
	return m
}

func (m *Metrics) OrderPlaced(kind, method string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(kind, method).Inc()
}

func (m *Metrics) Checkout(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
	m.checkoutSeconds.Observe(seconds)
}

func (m *Metrics) Compensation(step string, ok bool) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(step, result(ok)).Inc()
}

func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transition(kind, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, from, to).Inc()
}

func (m *Metrics) Refund(ok bool) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(result(ok)).Inc()
}

// NotificationDropped satisfies notify.DropCounter.
func (m *Metrics) NotificationDropped(event, reason string) {
	if m == nil {
		return
	}
	m.notifyDropped.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
