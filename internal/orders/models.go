package orders

import "time"

type Kind string

const (
	KindStandard Kind = "standard"
	KindBulk     Kind = "bulk"
)

type PaymentMethod string

const (
	PaymentGateway PaymentMethod = "gateway"
	PaymentCOD     PaymentMethod = "cash-on-fulfillment"
)

func (m PaymentMethod) Valid() bool { return m == PaymentGateway || m == PaymentCOD }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type RefundStatus string

const (
	RefundNotApplicable RefundStatus = "not-applicable"
	RefundPending       RefundStatus = "pending"
	RefundProcessed     RefundStatus = "processed"
	RefundFailed        RefundStatus = "failed"
)

// Item is one order line. PriceCents is captured when the order is built and
// never re-read from the catalog afterwards.
type Item struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	Unit       string `json:"unit"`
}

func (it Item) Subtotal() int64 { return it.PriceCents * int64(it.Quantity) }

type Address struct {
	Street        string `json:"street"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// Order is one seller's share of a buyer's cart.
type Order struct {
	ID       string `json:"id"`
	Number   string `json:"order_number"`
	BuyerID  string `json:"buyer_id"`
	SellerID string `json:"seller_id"`
	Kind     Kind   `json:"kind"`

	Items      []Item `json:"items"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`

	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	GatewayOrderID   string `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	GatewaySignature string `json:"-"`

	DeliveryAddress    Address      `json:"delivery_address"`
	ExpectedDeliveryAt *time.Time   `json:"expected_delivery_at,omitempty"`
	DeliveredAt        *time.Time   `json:"delivered_at,omitempty"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`
	RefundStatus       RefundStatus `json:"refund_status"`
	RefundID           string       `json:"refund_id,omitempty"`

	// Version is bumped by every successful Update; stores reject stale writes.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recalculate derives TotalCents from the items.
func (o *Order) Recalculate() {
	var total int64
	for _, it := range o.Items {
		total += it.Subtotal()
	}
	o.TotalCents = total
}

// Validate checks the invariants a store relies on before persisting.
func (o *Order) Validate() error {
	if o.Number == "" || o.BuyerID == "" || o.SellerID == "" {
		return validationf("order number, buyer and seller are required")
	}
	if len(o.Items) == 0 {
		return validationf("order %s has no items", o.Number)
	}
	var total int64
	for _, it := range o.Items {
		if it.Quantity < 1 {
			return validationf("invalid quantity %d for product %s", it.Quantity, it.ProductID)
		}
		if it.PriceCents < 0 {
			return validationf("negative price for product %s", it.ProductID)
		}
		total += it.Subtotal()
	}
	if total != o.TotalCents {
		return validationf("total %d does not match items (%d)", o.TotalCents, total)
	}
	return nil
}

// IsPaid reports whether a payment has been captured and not refunded.
func (o *Order) IsPaid() bool { return o.PaymentStatus == PaymentCompleted }

func (o *Order) Touch(now time.Time) { o.UpdatedAt = now.UTC() }

// Clone returns a deep copy so callers can mutate without aliasing a store.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.ExpectedDeliveryAt != nil {
		t := *o.ExpectedDeliveryAt
		c.ExpectedDeliveryAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}
