package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

type OrderStore struct {
	mu       sync.RWMutex
	orders   map[string]*orders.Order
	byNumber map[string]string
}

var _ orders.Store = (*OrderStore)(nil)

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:   make(map[string]*orders.Order),
		byNumber: make(map[string]string),
	}
}

func (s *OrderStore) Insert(ctx context.Context, o *orders.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("%w: id %s", orders.ErrConflict, o.ID)
	}
	if _, exists := s.byNumber[o.Number]; exists {
		return fmt.Errorf("%w: number %s", orders.ErrConflict, o.Number)
	}
	s.orders[o.ID] = o.Clone()
	s.byNumber[o.Number] = o.ID
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*orders.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *OrderStore) Update(ctx context.Context, o *orders.Order) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.orders[o.ID]
	if !ok {
		return orders.ErrNotFound
	}
	if cur.Version != o.Version {
		return orders.ErrConflict
	}
	next := o.Clone()
	// items and totals are fixed at insert time
	next.Items = cur.Items
	next.TotalCents = cur.TotalCents
	next.Version++
	s.orders[o.ID] = next
	o.Version = next.Version
	return nil
}

func (s *OrderStore) List(ctx context.Context, f orders.Filter) ([]*orders.Order, int, error) {
	_ = ctx
	f = f.Normalize()

	s.mu.RLock()
	var matched []*orders.Order
	for _, o := range s.orders {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		if f.SellerID != "" && o.SellerID != f.SellerID {
			continue
		}
		if f.Kind != "" && o.Kind != f.Kind {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Number > matched[j].Number
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := f.Offset()
	if start >= total {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
