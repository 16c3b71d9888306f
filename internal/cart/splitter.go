package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// Line is one requested product in a cart.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Group is the part of a cart fulfilled by a single seller.
type Group struct {
	SellerID   string
	Items      []orders.Item
	TotalCents int64
}

type Splitter struct {
	catalog inventory.Catalog
}

func NewSplitter(catalog inventory.Catalog) *Splitter { return &Splitter{catalog: catalog} }

// Split validates a cart and partitions it by seller, in the order sellers
// first appear. The stock check is advisory; the ledger has the final word
// at reservation time.
func (s *Splitter) Split(ctx context.Context, lines []Line) ([]Group, error) {
	if len(lines) == 0 {
		return nil, orders.Validationf("cart is empty")
	}
	for i, l := range lines {
		if strings.TrimSpace(l.ProductID) == "" {
			return nil, orders.Validationf("line %d: product id is required", i+1)
		}
		if l.Quantity <= 0 {
			return nil, orders.Validationf("line %d: invalid quantity %d for product %s", i+1, l.Quantity, l.ProductID)
		}
	}

	var (
		groups    []Group
		index     = map[string]int{}
		requested = map[string]int{}
	)
	for _, l := range lines {
		p, err := s.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", l.ProductID, err)
		}
		requested[p.ID] += l.Quantity
		if requested[p.ID] > p.Stock {
			return nil, &orders.StockShortfall{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: requested[p.ID],
				Available: p.Stock,
			}
		}

		item := orders.Item{
			ProductID:  p.ID,
			Quantity:   l.Quantity,
			PriceCents: p.FinalPriceCents(),
			Unit:       p.UnitOrDefault(),
		}
		gi, ok := index[p.SellerID]
		if !ok {
			gi = len(groups)
			index[p.SellerID] = gi
			groups = append(groups, Group{SellerID: p.SellerID})
		}
		groups[gi].Items = append(groups[gi].Items, item)
		groups[gi].TotalCents += item.Subtotal()
	}
	return groups, nil
}
