package fulfillment

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"go.uber.org/zap"
)

const (
	ReasonVendorCancelled = "Cancelled by vendor"
	ReasonBuyerCancelled  = "Cancelled by buyer"
)

// StatusChange is a seller-driven move through the lifecycle.
type StatusChange struct {
	Target   orders.Status
	Reason   string
	SellerID string
}

// TransitionResult carries the stored order and any side effect that failed
// after the transition was committed.
type TransitionResult struct {
	Order    *orders.Order
	Warnings []string
}

func (r *TransitionResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// UpdateStatus moves an order to ch.Target if the order's table allows it.
// With a SellerID set, orders of other sellers are reported as not found.
func (s *Service) UpdateStatus(ctx context.Context, id string, ch StatusChange) (*TransitionResult, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.SellerID != "" && o.SellerID != ch.SellerID {
		return nil, orders.ErrNotFound
	}
	reason := ch.Reason
	if reason == "" {
		reason = ReasonVendorCancelled
	}
	return s.transition(ctx, o, ch.Target, reason)
}

// Cancel lets the buyer or the seller withdraw an order that has not shipped.
func (s *Service) Cancel(ctx context.Context, id, actorID, reason string) (*TransitionResult, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actorID {
	case o.BuyerID:
		if reason == "" {
			reason = ReasonBuyerCancelled
		}
	case o.SellerID:
		if reason == "" {
			reason = ReasonVendorCancelled
		}
	default:
		return nil, orders.ErrNotFound
	}
	if !orders.Cancellable(o.Status) {
		return nil, fmt.Errorf("%w: order %s is %s and can no longer be cancelled", orders.ErrInvalidTransition, o.Number, o.Status)
	}
	return s.transition(ctx, o, orders.StatusCancelled, reason)
}

func (s *Service) transition(ctx context.Context, o *orders.Order, target orders.Status, reason string) (*TransitionResult, error) {
	from := o.Status
	if err := orders.TableFor(o.Kind).Check(from, target); err != nil {
		return nil, err
	}
	log := s.logger(ctx).With(zap.String("order_number", o.Number), zap.String("from", string(from)), zap.String("to", string(target)))

	now := s.now().UTC()
	o.Status = target
	o.Touch(now)
	// goods that already left the seller are not restocked or refunded here
	release := target == orders.StatusCancelled && orders.Cancellable(from)
	switch target {
	case orders.StatusDelivered:
		o.DeliveredAt = &now
	case orders.StatusCancelled:
		o.CancellationReason = reason
		if release && o.IsPaid() && o.PaymentMethod == orders.PaymentGateway {
			o.RefundStatus = orders.RefundPending
		}
	}

	// Persisting first makes the version check decide which of two racing
	// cancellations restocks.
	if err := s.store.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", o.Number, err)
	}
	s.metrics.Transition(string(o.Kind), string(from), string(target))
	log.Info("order_status_changed")

	res := &TransitionResult{Order: o}
	points := 0
	switch {
	case target == orders.StatusDelivered:
		points = s.accrue(ctx, o, res, log)
	case release:
		s.restock(ctx, o, res, log)
		if o.RefundStatus == orders.RefundPending {
			s.refund(ctx, o, res.warn, log)
		}
	}

	s.publisher.Publish(ctx, orders.EventStatusChanged, o.Number, orders.StatusChangedPayload{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		BuyerID:      o.BuyerID,
		SellerID:     o.SellerID,
		From:         from,
		To:           target,
		PointsEarned: points,
	})
	if target == orders.StatusCancelled {
		s.publisher.Publish(ctx, orders.EventOrderCancelled, o.Number, orders.OrderCancelledPayload{
			OrderID:      o.ID,
			OrderNumber:  o.Number,
			BuyerID:      o.BuyerID,
			SellerID:     o.SellerID,
			Reason:       o.CancellationReason,
			RefundStatus: o.RefundStatus,
		})
	}
	return res, nil
}

func (s *Service) accrue(ctx context.Context, o *orders.Order, res *TransitionResult, log *zap.Logger) int {
	points, err := s.loyalty.Accrue(ctx, o)
	if err != nil {
		log.Warn("loyalty_accrual_failed", zap.Error(err))
		res.warn("loyalty points were not credited: %v", err)
		return 0
	}
	return points
}

// restock returns every item of a cancelled order to the ledger. It runs
// detached from ctx: the cancellation is already committed.
func (s *Service) restock(ctx context.Context, o *orders.Order, res *TransitionResult, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	for _, it := range o.Items {
		if err := s.ledger.Release(ctx, it.ProductID, it.Quantity); err != nil {
			log.Error("stock_release_failed", zap.String("product_id", it.ProductID), zap.Int("qty", it.Quantity), zap.Error(err))
			res.warn("stock for %s was not restored: %v", it.ProductID, err)
		}
	}
}

func (s *Service) refund(ctx context.Context, o *orders.Order, warn func(string, ...any), log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gatewayTimeout)
	defer cancel()

	r, err := s.gateway.Refund(ctx, o.GatewayPaymentID)
	s.metrics.Refund(err == nil)
	if err != nil {
		log.Error("refund_failed", zap.String("payment_id", o.GatewayPaymentID), zap.Error(err))
		o.RefundStatus = orders.RefundFailed
		warn("refund failed and needs manual follow-up: %v", err)
	} else {
		log.Info("refund_processed", zap.String("refund_id", r.ID))
		o.RefundStatus = orders.RefundProcessed
		o.RefundID = r.ID
		o.PaymentStatus = orders.PaymentRefunded
	}
	o.Touch(s.now())
	if err := s.store.Update(ctx, o); err != nil {
		log.Error("refund_status_update_failed", zap.String("refund_status", string(o.RefundStatus)), zap.Error(err))
		warn("refund outcome %s was not saved: %v", o.RefundStatus, err)
	}
}
