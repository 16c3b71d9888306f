package inventory

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// Store applies a signed stock delta as one conditional read-modify-write.
// It must refuse (with *orders.StockShortfall) any delta that would take the
// balance below zero and report orders.ErrProductNotFound for unknown ids.
type Store interface {
	Apply(ctx context.Context, productID string, delta int) (remaining int, err error)
}

// Ledger reserves and releases stock. Release carries no idempotency key:
// callers must release at most once per successful Reserve.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger { return &Ledger{store: store} }

func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return orders.Validationf("invalid quantity %d for product %s", qty, productID)
	}
	if _, err := l.store.Apply(ctx, productID, -qty); err != nil {
		return fmt.Errorf("reserve %s x%d: %w", productID, qty, err)
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return orders.Validationf("invalid quantity %d for product %s", qty, productID)
	}
	if _, err := l.store.Apply(ctx, productID, qty); err != nil {
		return fmt.Errorf("release %s x%d: %w", productID, qty, err)
	}
	return nil
}
