package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OrderPlaced("standard", "gateway")
	m.OrderPlaced("standard", "gateway")
	m.Compensation("restock", false)
	m.NotificationDropped("order.created", "buffer_full")
	m.HTTPRequest("POST", "/orders", 409, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("standard", "gateway")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("restock", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyDropped.WithLabelValues("order.created", "buffer_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/orders", "4xx")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderPlaced("bulk", "cash-on-fulfillment")
		m.Checkout("ok", 1)
		m.Refund(true)
		m.Transition("bulk", "pending", "accepted")
		m.Verification("verified")
		m.HTTPRequest("GET", "/healthz", 200, 0)
	})
}
