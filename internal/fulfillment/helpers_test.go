package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/memory"
	"github.com/ariefcatur/go-marketplace-orders/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/sequence"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const testSecret = "rzp_test_secret"

type fakeGateway struct {
	mu      sync.Mutex
	created []payment.CreateOrderRequest
	refunds []string

	createErr func(req payment.CreateOrderRequest) error
	refundErr error
	block     bool
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (payment.RemoteOrder, error) {
	if g.block {
		<-ctx.Done()
		return payment.RemoteOrder{}, fmt.Errorf("%w: %w", orders.ErrGateway, ctx.Err())
	}
	if g.createErr != nil {
		if err := g.createErr(req); err != nil {
			return payment.RemoteOrder{}, err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, req)
	return payment.RemoteOrder{ID: "order_" + req.Receipt, Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt}, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string) (payment.Refund, error) {
	if g.refundErr != nil {
		return payment.Refund{}, g.refundErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, paymentID)
	return payment.Refund{ID: "rfnd_" + paymentID, PaymentID: paymentID, Status: "processed"}, nil
}

type published struct {
	event  string
	number string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, event, number string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{event: event, number: number})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

type loyaltyFunc func(ctx context.Context, o *orders.Order) (int, error)

func (f loyaltyFunc) Accrue(ctx context.Context, o *orders.Order) (int, error) { return f(ctx, o) }

type brokenCounter struct{}

func (brokenCounter) Incr(context.Context, string) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

// flakyStore fails Insert for the listed sellers.
type flakyStore struct {
	*memory.OrderStore
	failSellers map[string]bool
}

func (s *flakyStore) Insert(ctx context.Context, o *orders.Order) error {
	if s.failSellers[o.SellerID] {
		return errors.New("pg: connection reset")
	}
	return s.OrderStore.Insert(ctx, o)
}

// stubbornLedger honours ctx like a real database would and refuses to
// release one product.
type stubbornLedger struct {
	*memory.Catalog
	refuse string
}

func (s *stubbornLedger) Apply(ctx context.Context, productID string, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if delta > 0 && productID == s.refuse {
		return 0, errors.New("pg: deadlock detected")
	}
	return s.Catalog.Apply(ctx, productID, delta)
}

// racingLedger sells out the drain product right after reserving trigger, like a
// concurrent checkout landing between the split and the reservation.
type racingLedger struct {
	*memory.Catalog
	trigger, drain string
}

func (r *racingLedger) Apply(ctx context.Context, productID string, delta int) (int, error) {
	left, err := r.Catalog.Apply(ctx, productID, delta)
	if err == nil && delta < 0 && productID == r.trigger {
		if n := r.Catalog.Stock(r.drain); n > 0 {
			_, _ = r.Catalog.Apply(ctx, r.drain, -n)
		}
	}
	return left, err
}

type fixture struct {
	svc       *Service
	catalog   *memory.Catalog
	store     orders.Store
	mem       *memory.OrderStore
	gateway   *fakeGateway
	publisher *recordingPublisher
	verifier  *payment.Verifier
	now       time.Time
}

type option func(*Deps, *fixture)

func withFailingInsert(sellers ...string) option {
	return func(d *Deps, f *fixture) {
		fail := map[string]bool{}
		for _, s := range sellers {
			fail[s] = true
		}
		st := &flakyStore{OrderStore: f.mem, failSellers: fail}
		d.Store = st
		f.store = st
	}
}

func withRefusedRelease(productID string) option {
	return func(d *Deps, f *fixture) {
		d.Ledger = inventory.NewLedger(&stubbornLedger{Catalog: f.catalog, refuse: productID})
	}
}

func withRacingCheckout(trigger, drain string) option {
	return func(d *Deps, f *fixture) {
		d.Ledger = inventory.NewLedger(&racingLedger{Catalog: f.catalog, trigger: trigger, drain: drain})
	}
}

func withCounter(c sequence.Counter) option {
	return func(d *Deps, _ *fixture) { d.Allocator = sequence.NewAllocator(c, "ORD", 6) }
}

func withDeps(fn func(*Deps)) option {
	return func(d *Deps, _ *fixture) { fn(d) }
}

func withLoyalty(l LoyaltyAccruer) option {
	return func(d *Deps, _ *fixture) { d.Loyalty = l }
}

func products() []inventory.Product {
	return []inventory.Product{
		{ID: "p1", SKU: "A1", Name: "Tomato", SellerID: "s1", Stock: 10, PriceCents: 500, Unit: "kg"},
		{ID: "p2", SKU: "B1", Name: "Chili", SellerID: "s2", Stock: 1, PriceCents: 300},
		{ID: "p3", SKU: "A2", Name: "Garlic", SellerID: "s1", Stock: 4, PriceCents: 250},
		{ID: "p4", SKU: "C1", Name: "Wheat", SellerID: "s3", Stock: 50, PriceCents: 2000, Unit: "quintal"},
	}
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   memory.NewCatalog(products()...),
		gateway:   &fakeGateway{},
		publisher: &recordingPublisher{},
		verifier:  payment.NewVerifier(testSecret),
		now:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	f.mem = memory.NewOrderStore()
	f.store = f.mem
	d := Deps{
		Store:               f.store,
		Catalog:             f.catalog,
		Ledger:              inventory.NewLedger(f.catalog),
		Allocator:           sequence.NewAllocator(memory.NewCounter(), "ORD", 6),
		Gateway:             f.gateway,
		Verifier:            f.verifier,
		Publisher:           f.publisher,
		Metrics:             metrics.New(prometheus.NewRegistry()),
		Logger:              zap.NewNop(),
		Currency:            "INR",
		GatewayTimeout:      time.Second,
		CompensationTimeout: time.Second,
		Now:                 func() time.Time { return f.now },
	}
	for _, o := range opts {
		o(&d, f)
	}
	f.svc = New(d)
	return f
}

func buyer() Buyer { return Buyer{ID: "b1", Name: "Asha", Email: "asha@example.com"} }

func address() orders.Address {
	return orders.Address{Street: "12 Market Rd", City: "Pune", State: "MH", Pincode: "411001"}
}

func input(method orders.PaymentMethod, lines ...cart.Line) PlaceOrderInput {
	return PlaceOrderInput{Buyer: buyer(), Lines: lines, Address: address(), PaymentMethod: method}
}

// place commits a single-seller order and returns it.
func (f *fixture) place(t *testing.T, method orders.PaymentMethod, lines ...cart.Line) *orders.Order {
	t.Helper()
	res, err := f.svc.PlaceOrder(context.Background(), input(method, lines...))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if len(res.Orders) != 1 {
		t.Fatalf("want one order, got %d", len(res.Orders))
	}
	return res.Orders[0]
}
