package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *Order {
	o := &Order{
		Number:   "ORD000001",
		BuyerID:  "buyer-1",
		SellerID: "seller-a",
		Items: []Item{
			{ProductID: "p1", Quantity: 2, PriceCents: 1250, Unit: "kg"},
			{ProductID: "p2", Quantity: 1, PriceCents: 300, Unit: "piece"},
		},
	}
	o.Recalculate()
	return o
}

func TestRecalculate(t *testing.T) {
	o := sampleOrder()
	assert.Equal(t, int64(2800), o.TotalCents)
	require.NoError(t, o.Validate())
}

func TestValidateRejectsInconsistentTotal(t *testing.T) {
	o := sampleOrder()
	o.TotalCents = 1

	err := o.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidateRejectsBadLines(t *testing.T) {
	o := sampleOrder()
	o.Items[0].Quantity = 0
	o.Recalculate()
	assert.ErrorIs(t, o.Validate(), ErrValidation)

	o = sampleOrder()
	o.Items = nil
	o.Recalculate()
	assert.ErrorIs(t, o.Validate(), ErrValidation)
}

func TestCloneDoesNotAlias(t *testing.T) {
	o := sampleOrder()
	when := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	o.ExpectedDeliveryAt = &when

	c := o.Clone()
	c.Items[0].Quantity = 9
	*c.ExpectedDeliveryAt = when.Add(time.Hour)

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, when, *o.ExpectedDeliveryAt)
}

func TestStockShortfallMatchesSentinel(t *testing.T) {
	var err error = &StockShortfall{ProductID: "p2", Name: "Tomatoes", Requested: 1, Available: 0}
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "insufficient stock for Tomatoes: requested 1, available 0", err.Error())
}
