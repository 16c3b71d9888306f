package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("order not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrAllocation            = errors.New("order number allocation failed")
	ErrGateway               = errors.New("payment gateway failure")
	ErrInvalidSignature      = errors.New("invalid payment signature")
	ErrDuplicatePayment      = errors.New("order already has a verified payment with a different payment id")
	ErrPaymentMethodMismatch = errors.New("payment method mismatch")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrCompensation          = errors.New("compensation failed")
	ErrConflict              = errors.New("order was modified concurrently")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Validationf builds an ErrValidation with a client-facing detail.
func Validationf(format string, args ...any) error { return validationf(format, args...) }

// StockShortfall reports the first line that cannot be served.
type StockShortfall struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *StockShortfall) Error() string {
	name := e.ProductID
	if e.Name != "" {
		name = e.Name
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *StockShortfall) Is(target error) bool { return target == ErrInsufficientStock }

// TransitionError is returned when a target status is not reachable.
type TransitionError struct {
	From    Status   `json:"current_status"`
	To      Status   `json:"requested_status"`
	Allowed []Status `json:"valid_transitions"`
}

func (e *TransitionError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	return fmt.Sprintf("invalid status transition %s -> %s (allowed: [%s])", e.From, e.To, strings.Join(allowed, ", "))
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
