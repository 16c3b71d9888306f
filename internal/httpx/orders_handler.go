package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/fulfillment"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HeaderUser carries the authenticated caller; authentication itself happens
// upstream.
const HeaderUser = "X-User-Id"

type OrdersHandler struct {
	Orders  *fulfillment.Service
	Catalog inventory.Catalog
	// Redis backs idempotent creates and the status cache; nil disables both.
	Redis redis.Cmdable
}

type CreateOrderReq struct {
	Kind               orders.Kind          `json:"kind"`
	Items              []cart.Line          `json:"items"`
	DeliveryAddress    orders.Address       `json:"delivery_address"`
	PaymentMethod      orders.PaymentMethod `json:"payment_method"`
	ExpectedDeliveryAt *time.Time           `json:"expected_delivery_date,omitempty"`
	CustomerName       string               `json:"customer_name,omitempty"`
	CustomerEmail      string               `json:"customer_email,omitempty"`
}

type CreateOrderResp struct {
	Orders     []*orders.Order `json:"orders"`
	Idempotent bool            `json:"idempotent"`
}

type StatusReq struct {
	Status orders.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

type VerifyReq struct {
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type TransitionResp struct {
	Order    *orders.Order `json:"order"`
	Warnings []string      `json:"warnings,omitempty"`
}

type VerifyResp struct {
	Order    *orders.Order `json:"order"`
	Outcome  string        `json:"outcome"`
	Warnings []string      `json:"warnings,omitempty"`
}

type ListResp struct {
	Orders []*orders.Order `json:"orders"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Total  int             `json:"total"`
}

type ProductResp struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	SellerID   string `json:"seller_id"`
	Unit       string `json:"unit"`
	Stock      int    `json:"stock"`
	PriceCents int64  `json:"price_cents"`
}

type statusResp struct {
	OrderNumber   string               `json:"order_number"`
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
	RefundStatus  orders.RefundStatus  `json:"refund_status"`
}

// cachedStatus is what lives under order_status:{id}; the parties are kept
// so cache hits are scoped like database reads.
type cachedStatus struct {
	statusResp
	BuyerID  string `json:"buyer_id"`
	SellerID string `json:"seller_id"`
}

// replay is the stored outcome of an idempotent create.
type replay struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Route("/orders", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/status", h.getStatus)
		r.Patch("/{id}/status", h.updateStatus)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Post("/{id}/payment/verify", h.verifyPayment)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get(HeaderUser)) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderUser, Code: "unauthenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actor(r *http.Request) string { return strings.TrimSpace(r.Header.Get(HeaderUser)) }

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return orders.Validationf("invalid json: %v", err)
	}
	return nil
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]ProductResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, ProductResp{
			ID:         p.ID,
			SKU:        p.SKU,
			Name:       p.Name,
			SellerID:   p.SellerID,
			Unit:       p.UnitOrDefault(),
			Stock:      p.Stock,
			PriceCents: p.FinalPriceCents(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	log := logging.FromContext(ctx)
	buyer := actor(r)

	// Idempotency-Key: the first request claims the key, later ones replay
	// its stored outcome.
	idemKey := ""
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderCreate, buyer, k)
		won, err := redisx.Claim(ctx, h.Redis, idemKey, redisx.IdemPending, redisx.TTLIdemPending)
		if err != nil {
			log.Warn("idempotency_claim_failed", zap.Error(err))
			idemKey = ""
		} else if !won {
			h.replayCreate(w, r, idemKey)
			return
		}
	}

	res, err := h.Orders.PlaceOrder(ctx, fulfillment.PlaceOrderInput{
		Buyer:              fulfillment.Buyer{ID: buyer, Name: req.CustomerName, Email: req.CustomerEmail},
		Kind:               req.Kind,
		Lines:              req.Items,
		Address:            req.DeliveryAddress,
		PaymentMethod:      req.PaymentMethod,
		ExpectedDeliveryAt: req.ExpectedDeliveryAt,
	})

	var (
		status int
		body   any
	)
	if err != nil {
		st, eb := errorResponse(err)
		eb.Orders = res.Orders
		status, body = st, eb
		if st >= http.StatusInternalServerError {
			log.Error("order_create_failed", zap.Error(err))
		}
	} else {
		status, body = http.StatusCreated, CreateOrderResp{Orders: res.Orders}
	}

	for _, o := range res.Orders {
		h.cacheStatus(ctx, o)
	}
	if idemKey != "" {
		// only outcomes that created something are worth replaying
		if len(res.Orders) > 0 {
			raw, _ := json.Marshal(body)
			stored, _ := json.Marshal(replay{Status: status, Body: raw})
			if err := h.Redis.Set(ctx, idemKey, stored, redisx.TTLIdempotency).Err(); err != nil {
				log.Warn("idempotency_store_failed", zap.Error(err))
			}
		} else {
			_ = h.Redis.Del(ctx, idemKey).Err()
		}
	}
	writeJSON(w, status, body)
}

func (h *OrdersHandler) replayCreate(w http.ResponseWriter, r *http.Request, key string) {
	v, err := h.Redis.Get(r.Context(), key).Result()
	if errors.Is(err, redis.Nil) || v == redisx.IdemPending {
		writeJSON(w, http.StatusConflict, errorBody{Error: "a request with this idempotency key is in progress", Code: "idempotency_in_progress"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	var rp replay
	if err := json.Unmarshal([]byte(v), &rp); err != nil {
		writeError(w, r, err)
		return
	}
	body := []byte(rp.Body)
	if rp.Status == http.StatusCreated {
		var resp CreateOrderResp
		if err := json.Unmarshal(rp.Body, &resp); err == nil {
			resp.Idempotent = true
			body, _ = json.Marshal(resp)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rp.Status)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q := r.URL.Query()
	f := orders.Filter{
		Kind:   orders.Kind(q.Get("kind")),
		Status: orders.Status(q.Get("status")),
		Page:   atoi(q.Get("page")),
		Limit:  atoi(q.Get("limit")),
	}
	switch q.Get("role") {
	case "", "buyer":
		f.BuyerID = actor(r)
	case "seller":
		f.SellerID = actor(r)
	default:
		writeError(w, r, orders.Validationf("role must be buyer or seller"))
		return
	}
	f = f.Normalize()

	list, total, err := h.Orders.Orders(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*orders.Order{}
	}
	writeJSON(w, http.StatusOK, ListResp{Orders: list, Page: f.Page, Limit: f.Limit, Total: total})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Order(ctx, chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	id := chi.URLParam(r, "id")
	user := actor(r)

	// 1) cache
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Result(); err == nil {
			var c cachedStatus
			if json.Unmarshal([]byte(s), &c) == nil {
				if user != c.BuyerID && user != c.SellerID {
					writeError(w, r, orders.ErrNotFound)
					return
				}
				writeJSON(w, http.StatusOK, c.statusResp)
				return
			}
		}
	}

	// 2) store
	o, err := h.Orders.Order(ctx, id, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, statusOf(o))
}

func statusOf(o *orders.Order) statusResp {
	return statusResp{
		OrderNumber:   o.Number,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		RefundStatus:  o.RefundStatus,
	}
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	b, _ := json.Marshal(cachedStatus{statusResp: statusOf(o), BuyerID: o.BuyerID, SellerID: o.SellerID})
	if err := h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, o.ID), b, redisx.TTLStatusCache).Err(); err != nil {
		logging.FromContext(ctx).Warn("status_cache_write_failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		writeError(w, r, orders.Validationf("status is required"))
		return
	}
	res, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), fulfillment.StatusChange{
		Target:   req.Status,
		Reason:   req.Reason,
		SellerID: actor(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheStatus(r.Context(), res.Order)
	writeJSON(w, http.StatusOK, TransitionResp{Order: res.Order, Warnings: res.Warnings})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	res, err := h.Orders.Cancel(r.Context(), chi.URLParam(r, "id"), actor(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheStatus(r.Context(), res.Order)
	writeJSON(w, http.StatusOK, TransitionResp{Order: res.Order, Warnings: res.Warnings})
}

func (h *OrdersHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Orders.VerifyPayment(r.Context(), chi.URLParam(r, "id"), actor(r), req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheStatus(r.Context(), res.Order)
	writeJSON(w, http.StatusOK, VerifyResp{Order: res.Order, Outcome: res.Outcome.String(), Warnings: res.Warnings})
}
