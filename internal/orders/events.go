package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated    = "order.created"
	EventPaymentVerified = "order.payment.verified"
	EventStatusChanged   = "order.status.changed"
	EventOrderCancelled  = "order.cancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order number
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	BuyerID       string        `json:"buyer_id"`
	SellerID      string        `json:"seller_id"`
	Kind          Kind          `json:"kind"`
	Items         []Item        `json:"items"`
	TotalCents    int64         `json:"total_cents"`
	Currency      string        `json:"currency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerEmail string        `json:"customer_email,omitempty"`
}

type PaymentVerifiedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BuyerID     string `json:"buyer_id"`
	SellerID    string `json:"seller_id"`
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
}

type StatusChangedPayload struct {
	OrderID      string `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	BuyerID      string `json:"buyer_id"`
	SellerID     string `json:"seller_id"`
	From         Status `json:"from"`
	To           Status `json:"to"`
	PointsEarned int    `json:"points_earned,omitempty"`
}

type OrderCancelledPayload struct {
	OrderID      string       `json:"order_id"`
	OrderNumber  string       `json:"order_number"`
	BuyerID      string       `json:"buyer_id"`
	SellerID     string       `json:"seller_id"`
	Reason       string       `json:"reason,omitempty"`
	RefundStatus RefundStatus `json:"refund_status"`
}

func NewOrderCreatedPayload(o *Order) OrderCreatedPayload {
	return OrderCreatedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Kind:          o.Kind,
		Items:         o.Items,
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		CustomerName:  o.DeliveryAddress.CustomerName,
		CustomerEmail: o.DeliveryAddress.CustomerEmail,
	}
}
