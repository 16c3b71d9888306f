package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// Catalog is an in-process catalog whose stock counters are mutated with
// compare-and-swap only; the map lock guards membership, never a balance.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]inventory.Product
	stock    map[string]*atomic.Int64
}

var (
	_ inventory.Catalog = (*Catalog)(nil)
	_ inventory.Store   = (*Catalog)(nil)
)

func NewCatalog(products ...inventory.Product) *Catalog {
	c := &Catalog{
		products: make(map[string]inventory.Product, len(products)),
		stock:    make(map[string]*atomic.Int64, len(products)),
	}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// Put adds or replaces a product, resetting its stock to p.Stock.
func (c *Catalog) Put(p inventory.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := &atomic.Int64{}
	n.Store(int64(p.Stock))
	c.products[p.ID] = p
	c.stock[p.ID] = n
}

func (c *Catalog) counter(id string) (*atomic.Int64, inventory.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.stock[id]
	return n, c.products[id], ok
}

func (c *Catalog) Apply(ctx context.Context, productID string, delta int) (int, error) {
	_ = ctx
	n, p, ok := c.counter(productID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", orders.ErrProductNotFound, productID)
	}
	for {
		cur := n.Load()
		next := cur + int64(delta)
		if next < 0 {
			return 0, &orders.StockShortfall{ProductID: productID, Name: p.Name, Requested: -delta, Available: int(cur)}
		}
		if n.CompareAndSwap(cur, next) {
			return int(next), nil
		}
	}
}

// Stock returns the current balance, or -1 for unknown products.
func (c *Catalog) Stock(productID string) int {
	n, _, ok := c.counter(productID)
	if !ok {
		return -1
	}
	return int(n.Load())
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (inventory.Product, error) {
	_ = ctx
	n, p, ok := c.counter(id)
	if !ok {
		return inventory.Product{}, fmt.Errorf("%w: %s", orders.ErrProductNotFound, id)
	}
	p.Stock = int(n.Load())
	return p, nil
}

func (c *Catalog) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	c.mu.RLock()
	out := make([]inventory.Product, 0, len(c.products))
	for id, p := range c.products {
		p.Stock = int(c.stock[id].Load())
		out = append(out, p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
