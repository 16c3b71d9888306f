package main

import (
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/shopspring/decimal"
)

// demoProducts stocks the in-memory catalog for local runs.
func demoProducts() []inventory.Product {
	return []inventory.Product{
		{ID: "prd-tomato", SKU: "FRM-TOM-1KG", Name: "Tomato", SellerID: "farmer-1", SellerType: inventory.SellerFarmer, Unit: "kg", Stock: 120, PriceCents: 4000},
		{ID: "prd-onion", SKU: "FRM-ONI-1KG", Name: "Onion", SellerID: "farmer-1", SellerType: inventory.SellerFarmer, Unit: "kg", Stock: 200, PriceCents: 3500},
		{ID: "prd-chili", SKU: "FRM-CHI-250", Name: "Green Chili", SellerID: "farmer-2", SellerType: inventory.SellerFarmer, Unit: "250g", Stock: 60, PriceCents: 2000},
		{
			ID: "prd-rice", SKU: "VND-RIC-25KG", Name: "Basmati Rice", SellerID: "vendor-1", SellerType: inventory.SellerVendor, Unit: "bag",
			Stock: 40, BasePriceCents: 180000, MarginPercent: decimal.NewFromInt(12),
		},
	}
}
