package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(25000), req.AmountMinor)
		assert.Equal(t, "ORD000001", req.Receipt)
		assert.Equal(t, "seller-a", req.Notes["sellerId"])

		_ = json.NewEncoder(w).Encode(RemoteOrder{ID: "order_abc", Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/", KeyID: "rzp_key", KeySecret: "rzp_secret"}
	got, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		AmountMinor: 25000, Currency: "INR", Receipt: "ORD000001",
		Notes: map[string]string{"sellerId": "seller-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", got.ID)
}

func TestClientMapsFailuresToGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount must be at least 100"}}`))
		case "/v1/payments/pay_1/refund":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{AmountMinor: 1, Currency: "INR", Receipt: "ORD000002"})
	require.ErrorIs(t, err, orders.ErrGateway)
	assert.Contains(t, err.Error(), "amount must be at least 100")

	_, err = c.Refund(context.Background(), "pay_1")
	assert.ErrorIs(t, err, orders.ErrGateway)

	// 200 without an id is still a failure
	_, err = (&Client{BaseURL: srv.URL + "/other"}).CreateOrder(context.Background(), CreateOrderRequest{Receipt: "ORD000003"})
	assert.ErrorIs(t, err, orders.ErrGateway)
}

func TestClientTimeoutIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	defer srv.CloseClientConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := (&Client{BaseURL: srv.URL}).CreateOrder(ctx, CreateOrderRequest{Receipt: "ORD000004"})
	assert.ErrorIs(t, err, orders.ErrGateway)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_9/refund", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_9","amount":5000,"status":"processed"}`))
	}))
	defer srv.Close()

	got, err := (&Client{BaseURL: srv.URL}).Refund(context.Background(), "pay_9")
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", got.ID)
	assert.Equal(t, int64(5000), got.Amount)
}
