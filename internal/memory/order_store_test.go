package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(n int, buyer, seller string) *orders.Order {
	o := &orders.Order{
		ID:        fmt.Sprintf("id-%d", n),
		Number:    fmt.Sprintf("ORD%06d", n),
		BuyerID:   buyer,
		SellerID:  seller,
		Kind:      orders.KindStandard,
		Items:     []orders.Item{{ProductID: "p1", Quantity: 1, PriceCents: 100, Unit: "kg"}},
		Status:    orders.StatusPending,
		CreatedAt: time.Date(2026, 1, 1, 0, n, 0, 0, time.UTC),
	}
	o.Recalculate()
	return o
}

func TestOrderStoreOptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	require.NoError(t, s.Insert(ctx, newOrder(1, "b", "s")))

	first, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	second, err := s.Get(ctx, "id-1")
	require.NoError(t, err)

	first.Status = orders.StatusAccepted
	require.NoError(t, s.Update(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Status = orders.StatusCancelled
	assert.ErrorIs(t, s.Update(ctx, second), orders.ErrConflict)

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAccepted, got.Status)
}

func TestOrderStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	require.NoError(t, s.Insert(ctx, newOrder(1, "b", "s")))

	dup := newOrder(2, "b", "s")
	dup.Number = "ORD000001"
	assert.ErrorIs(t, s.Insert(ctx, dup), orders.ErrConflict)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, newOrder(9, "b", "s")), orders.ErrNotFound)
}

func TestOrderStoreListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Insert(ctx, newOrder(i, "b1", "s1")))
	}
	require.NoError(t, s.Insert(ctx, newOrder(6, "b2", "s1")))

	page, total, err := s.List(ctx, orders.Filter{BuyerID: "b1", Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "ORD000003", page[0].Number)
	assert.Equal(t, "ORD000002", page[1].Number)

	_, total, err = s.List(ctx, orders.Filter{SellerID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	empty, total, err := s.List(ctx, orders.Filter{BuyerID: "b1", Page: 9})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 5, total)
}
