package fulfillment

import (
	"context"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/sequence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultGatewayTimeout      = 5 * time.Second
	defaultCompensationTimeout = 10 * time.Second
)

// LoyaltyAccruer credits the buyer once an order is delivered.
type LoyaltyAccruer interface {
	Accrue(ctx context.Context, o *orders.Order) (points int, err error)
}

type NopLoyalty struct{}

func (NopLoyalty) Accrue(context.Context, *orders.Order) (int, error) { return 0, nil }

// Deps wires a Service. Store, Catalog, Ledger, Allocator, Gateway and
// Verifier are required; the rest have working defaults.
type Deps struct {
	Store     orders.Store
	Catalog   inventory.Catalog
	Ledger    *inventory.Ledger
	Allocator *sequence.Allocator
	Gateway   payment.Gateway
	Verifier  *payment.Verifier
	Publisher notify.Publisher
	Loyalty   LoyaltyAccruer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	Currency            string
	GatewayTimeout      time.Duration
	CompensationTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// Service runs checkout, payment confirmation and the order lifecycle.
type Service struct {
	store     orders.Store
	splitter  *cart.Splitter
	ledger    *inventory.Ledger
	allocator *sequence.Allocator
	gateway   payment.Gateway
	verifier  *payment.Verifier
	publisher notify.Publisher
	loyalty   LoyaltyAccruer
	metrics   *metrics.Metrics
	log       *zap.Logger
	tracer    trace.Tracer

	currency            string
	gatewayTimeout      time.Duration
	compensationTimeout time.Duration

	now   func() time.Time
	newID func() string
}

func New(d Deps) *Service {
	s := &Service{
		store:               d.Store,
		splitter:            cart.NewSplitter(d.Catalog),
		ledger:              d.Ledger,
		allocator:           d.Allocator,
		gateway:             d.Gateway,
		verifier:            d.Verifier,
		publisher:           d.Publisher,
		loyalty:             d.Loyalty,
		metrics:             d.Metrics,
		log:                 d.Logger,
		tracer:              otel.Tracer("github.com/ariefcatur/go-marketplace-orders/internal/fulfillment"),
		currency:            d.Currency,
		gatewayTimeout:      d.GatewayTimeout,
		compensationTimeout: d.CompensationTimeout,
		now:                 d.Now,
		newID:               d.NewID,
	}
	if s.publisher == nil {
		s.publisher = notify.Nop{}
	}
	if s.loyalty == nil {
		s.loyalty = NopLoyalty{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.currency == "" {
		s.currency = "INR"
	}
	if s.gatewayTimeout <= 0 {
		s.gatewayTimeout = defaultGatewayTimeout
	}
	if s.compensationTimeout <= 0 {
		s.compensationTimeout = defaultCompensationTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logging.FromContextOr(ctx, s.log)
}

// Order returns an order visible to actorID, who must be its buyer or seller.
func (s *Service) Order(ctx context.Context, id, actorID string) (*orders.Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != o.BuyerID && actorID != o.SellerID {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

// Orders lists a page of orders; f must be scoped to a buyer or a seller.
func (s *Service) Orders(ctx context.Context, f orders.Filter) ([]*orders.Order, int, error) {
	if f.BuyerID == "" && f.SellerID == "" {
		return nil, 0, orders.Validationf("a buyer or seller scope is required")
	}
	return s.store.List(ctx, f.Normalize())
}
