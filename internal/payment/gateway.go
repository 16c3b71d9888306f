package payment

import "context"

type CreateOrderRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type RemoteOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Gateway is the remote payment provider. Implementations report every
// transport or provider failure as orders.ErrGateway.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (RemoteOrder, error)
	Refund(ctx context.Context, paymentID string) (Refund, error)
}
