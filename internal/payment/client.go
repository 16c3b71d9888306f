package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// Client talks to a Razorpay-style REST API with basic auth.
type Client struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	HTTP      *http.Client
}

var _ Gateway = (*Client)(nil)

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (RemoteOrder, error) {
	var out RemoteOrder
	if err := c.do(ctx, http.MethodPost, "/v1/orders", req, &out); err != nil {
		return RemoteOrder{}, fmt.Errorf("create order %s: %w", req.Receipt, err)
	}
	if out.ID == "" {
		return RemoteOrder{}, fmt.Errorf("create order %s: %w: empty order id", req.Receipt, orders.ErrGateway)
	}
	return out, nil
}

func (c *Client) Refund(ctx context.Context, paymentID string) (Refund, error) {
	var out Refund
	path := "/v1/payments/" + url.PathEscape(paymentID) + "/refund"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &out); err != nil {
		return Refund{}, fmt.Errorf("refund %s: %w", paymentID, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", orders.ErrGateway, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %w", orders.ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", orders.ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", orders.ErrGateway, err)
	}
	if resp.StatusCode/100 != 2 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Description != "" {
			return fmt.Errorf("%w: %d %s: %s", orders.ErrGateway, resp.StatusCode, ae.Error.Code, ae.Error.Description)
		}
		return fmt.Errorf("%w: status %d", orders.ErrGateway, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode: %w", orders.ErrGateway, err)
	}
	return nil
}
