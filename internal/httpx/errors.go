package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-marketplace-orders/internal/fulfillment"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"go.uber.org/zap"
)

type errorBody struct {
	Error              string          `json:"error"`
	Code               string          `json:"code"`
	Details            any             `json:"details,omitempty"`
	CompensationFailed bool            `json:"compensation_failed,omitempty"`
	Orders             []*orders.Order `json:"orders,omitempty"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{orders.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{orders.ErrNotFound, http.StatusNotFound, "order_not_found"},
	{orders.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{orders.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{orders.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{orders.ErrInvalidSignature, http.StatusBadRequest, "invalid_signature"},
	{orders.ErrPaymentMethodMismatch, http.StatusBadRequest, "payment_method_mismatch"},
	{orders.ErrDuplicatePayment, http.StatusConflict, "duplicate_payment"},
	{orders.ErrConflict, http.StatusConflict, "conflict"},
	{orders.ErrAllocation, http.StatusServiceUnavailable, "allocation_failed"},
	{orders.ErrGateway, http.StatusServiceUnavailable, "gateway_unavailable"},
}

// classify maps an error chain to an HTTP status and a stable code.
func classify(err error) (int, string) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func errorResponse(err error) (int, errorBody) {
	status, code := classify(err)
	body := errorBody{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}

	var short *orders.StockShortfall
	var te *orders.TransitionError
	switch {
	case errors.As(err, &short):
		body.Details = short
	case errors.As(err, &te):
		body.Details = te
	}
	var ce *fulfillment.CompensationError
	body.CompensationFailed = errors.As(err, &ce)
	return status, body
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request_failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
