package sequence

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// NamespaceOrders is the counter behind order numbers.
const NamespaceOrders = "orderNumber"

// Counter atomically increments the sequence of a namespace and returns the
// new value. The first call for a namespace returns 1.
type Counter interface {
	Incr(ctx context.Context, namespace string) (int64, error)
}

// Allocator turns counter values into order numbers such as ORD000042.
type Allocator struct {
	counter Counter
	prefix  string
	width   int
}

func NewAllocator(counter Counter, prefix string, width int) *Allocator {
	if width <= 0 {
		width = 6
	}
	return &Allocator{counter: counter, prefix: prefix, width: width}
}

func (a *Allocator) Next(ctx context.Context, namespace string) (string, error) {
	seq, err := a.counter.Incr(ctx, namespace)
	if err != nil {
		return "", fmt.Errorf("%w: %w", orders.ErrAllocation, err)
	}
	if seq <= 0 {
		return "", fmt.Errorf("%w: counter %q returned %d", orders.ErrAllocation, namespace, seq)
	}
	return a.Format(seq), nil
}

func (a *Allocator) Format(seq int64) string {
	return fmt.Sprintf("%s%0*d", a.prefix, a.width, seq)
}
