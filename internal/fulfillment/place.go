package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/sequence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Buyer struct {
	ID    string
	Name  string
	Email string
}

type PlaceOrderInput struct {
	Buyer              Buyer
	Kind               orders.Kind
	Lines              []cart.Line
	Address            orders.Address
	PaymentMethod      orders.PaymentMethod
	ExpectedDeliveryAt *time.Time
}

// PlaceOrderResult holds the orders committed so far, one per seller.
type PlaceOrderResult struct {
	Orders []*orders.Order
}

func (in *PlaceOrderInput) validate() error {
	if strings.TrimSpace(in.Buyer.ID) == "" {
		return orders.Validationf("buyer is required")
	}
	switch in.Kind {
	case "":
		in.Kind = orders.KindStandard
	case orders.KindStandard, orders.KindBulk:
	default:
		return orders.Validationf("unknown order kind %q", in.Kind)
	}
	a := in.Address
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.State) == "" || strings.TrimSpace(a.Pincode) == "" {
		return orders.Validationf("incomplete delivery address")
	}
	if !in.PaymentMethod.Valid() {
		return orders.Validationf("invalid payment method %q", in.PaymentMethod)
	}
	if in.Address.CustomerName == "" {
		in.Address.CustomerName = in.Buyer.Name
	}
	if in.Address.CustomerEmail == "" {
		in.Address.CustomerEmail = in.Buyer.Email
	}
	return nil
}

// PlaceOrder turns a cart into one order per seller. Sellers are processed
// one at a time; a failure compensates the failing seller's reservations and
// stops, leaving earlier sellers' orders committed and returned alongside the
// error.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "fulfillment.PlaceOrder",
		trace.WithAttributes(attribute.String("buyer.id", in.Buyer.ID), attribute.Int("cart.lines", len(in.Lines))))
	start := s.now()
	log := s.logger(ctx).With(zap.String("buyer_id", in.Buyer.ID))
	res := &PlaceOrderResult{}

	defer func() {
		outcome := "ok"
		switch {
		case err != nil && len(res.Orders) > 0:
			outcome = "partial"
		case err != nil:
			outcome = "failed"
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			log.Warn("order_place_failed", zap.String("outcome", outcome), zap.Int("committed", len(res.Orders)), zap.Error(err))
		} else {
			span.SetStatus(codes.Ok, outcome)
		}
		span.End()
		s.metrics.Checkout(outcome, s.now().Sub(start).Seconds())
	}()

	if err := in.validate(); err != nil {
		return res, err
	}
	groups, err := s.splitter.Split(ctx, in.Lines)
	if err != nil {
		return res, err
	}
	log.Info("order_place_start", zap.Int("sellers", len(groups)), zap.String("kind", string(in.Kind)))

	for _, g := range groups {
		o, err := s.placeGroup(ctx, in, g)
		if err != nil {
			return res, fmt.Errorf("seller %s: %w", g.SellerID, err)
		}
		res.Orders = append(res.Orders, o)
		s.metrics.OrderPlaced(string(o.Kind), string(o.PaymentMethod))
		s.publisher.Publish(ctx, orders.EventOrderCreated, o.Number, orders.NewOrderCreatedPayload(o))
		log.Info("order_created", zap.String("order_number", o.Number), zap.String("seller_id", o.SellerID), zap.Int64("total_cents", o.TotalCents))
	}
	return res, nil
}

func (s *Service) placeGroup(ctx context.Context, in PlaceOrderInput, g cart.Group) (_ *orders.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "fulfillment.placeGroup",
		trace.WithAttributes(attribute.String("seller.id", g.SellerID), attribute.Int("items", len(g.Items))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "seller group failed")
		}
		span.End()
	}()
	log := s.logger(ctx).With(zap.String("seller_id", g.SellerID))
	sg := &saga{}
	abort := func(cause error) error {
		return sg.abort(ctx, cause, s.compensationTimeout, log, s.metrics)
	}

	number, err := s.allocator.Next(ctx, sequence.NamespaceOrders)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.number", number))

	for _, it := range g.Items {
		if err := s.ledger.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			return nil, abort(err)
		}
		sg.record("release", it.ProductID, func(ctx context.Context) error {
			return s.ledger.Release(ctx, it.ProductID, it.Quantity)
		})
	}

	now := s.now().UTC()
	o := &orders.Order{
		ID:                 s.newID(),
		Number:             number,
		BuyerID:            in.Buyer.ID,
		SellerID:           g.SellerID,
		Kind:               in.Kind,
		Items:              g.Items,
		Currency:           s.currency,
		Status:             orders.StatusPending,
		PaymentMethod:      in.PaymentMethod,
		PaymentStatus:      orders.PaymentPending,
		DeliveryAddress:    in.Address,
		ExpectedDeliveryAt: in.ExpectedDeliveryAt,
		RefundStatus:       orders.RefundNotApplicable,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	o.Recalculate()

	if o.PaymentMethod == orders.PaymentGateway {
		remote, err := s.createRemoteOrder(ctx, o)
		if err != nil {
			return nil, abort(err)
		}
		o.GatewayOrderID = remote.ID
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, abort(fmt.Errorf("persist order %s: %w", o.Number, err))
	}
	return o, nil
}

func (s *Service) createRemoteOrder(ctx context.Context, o *orders.Order) (payment.RemoteOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	remote, err := s.gateway.CreateOrder(ctx, payment.CreateOrderRequest{
		AmountMinor: o.TotalCents,
		Currency:    o.Currency,
		Receipt:     o.Number,
		Notes: map[string]string{
			"orderNumber": o.Number,
			"buyerId":     o.BuyerID,
			"sellerId":    o.SellerID,
		},
	})
	if err != nil {
		if !errors.Is(err, orders.ErrGateway) {
			err = fmt.Errorf("%w: %w", orders.ErrGateway, err)
		}
		return payment.RemoteOrder{}, err
	}
	return remote, nil
}
