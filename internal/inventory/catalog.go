package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SellerFarmer = "farmer"
	SellerVendor = "vendor"
)

// Product is the slice of a catalog item this service needs.
type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	SellerID   string    `json:"seller_id"`
	SellerType string    `json:"seller_type"`
	Unit       string    `json:"unit"`
	Stock      int       `json:"stock"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Vendors re-list farm produce: the sale price is BasePriceCents plus
	// MarginPercent on top of it.
	BasePriceCents int64           `json:"base_price_cents,omitempty"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
}

var hundred = decimal.NewFromInt(100)

// FinalPriceCents resolves the unit price charged at order time, rounded to
// whole minor units.
func (p Product) FinalPriceCents() int64 {
	if p.SellerType == SellerVendor && p.BasePriceCents > 0 {
		factor := decimal.NewFromInt(1).Add(p.MarginPercent.Div(hundred))
		return decimal.NewFromInt(p.BasePriceCents).Mul(factor).Round(0).IntPart()
	}
	return p.PriceCents
}

// UnitOrDefault falls back to "piece" for items listed without a unit.
func (p Product) UnitOrDefault() string {
	if p.Unit == "" {
		return "piece"
	}
	return p.Unit
}

// Catalog is the read side of the external product catalog.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}
