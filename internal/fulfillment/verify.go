package fulfillment

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"go.uber.org/zap"
)

type VerifyResult struct {
	Order    *orders.Order
	Outcome  payment.Outcome
	Warnings []string
}

func (r *VerifyResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// VerifyPayment confirms a payment callback for the buyer's order. A pending
// order moves to accepted; an order the seller already advanced keeps its
// status. A captured payment on a cancelled order is recorded and refunded.
// Repeating a successful verification is a no-op.
func (s *Service) VerifyPayment(ctx context.Context, id, buyerID, paymentID, signature string) (*VerifyResult, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, orders.ErrNotFound
	}
	log := s.logger(ctx).With(zap.String("order_number", o.Number))

	outcome, err := s.verifier.Check(o, paymentID, signature)
	if err != nil {
		s.metrics.Verification("rejected")
		log.Warn("payment_verification_rejected", zap.Error(err))
		return nil, err
	}
	s.metrics.Verification(outcome.String())
	res := &VerifyResult{Order: o, Outcome: outcome}
	if outcome == payment.OutcomeAlreadyVerified {
		return res, nil
	}

	from := o.Status
	table := orders.TableFor(o.Kind)
	late := false
	switch {
	case from == orders.StatusPending:
		if err := table.Check(from, orders.StatusAccepted); err != nil {
			return nil, err
		}
		o.Status = orders.StatusAccepted
	case from == orders.StatusCancelled:
		// no goods will move, so only money the gateway captured is recorded
		if o.PaymentMethod != orders.PaymentGateway {
			return nil, &orders.TransitionError{From: from, To: orders.StatusAccepted, Allowed: table.Allowed(from)}
		}
		late = true
		o.RefundStatus = orders.RefundPending
	case !table.Known(from):
		return nil, &orders.TransitionError{From: from, To: orders.StatusAccepted, Allowed: table.Allowed(from)}
	}
	o.PaymentStatus = orders.PaymentCompleted
	o.GatewayPaymentID = paymentID
	o.GatewaySignature = signature
	o.Touch(s.now())
	if err := s.store.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("record payment for %s: %w", o.Number, err)
	}
	log.Info("payment_verified", zap.String("payment_id", paymentID), zap.String("status", string(o.Status)))
	if o.Status != from {
		s.metrics.Transition(string(o.Kind), string(from), string(o.Status))
	}

	s.publisher.Publish(ctx, orders.EventPaymentVerified, o.Number, orders.PaymentVerifiedPayload{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		PaymentID:   paymentID,
		AmountCents: o.TotalCents,
	})
	if late {
		log.Warn("payment_captured_after_cancellation", zap.String("payment_id", paymentID))
		s.refund(ctx, o, res.warn, log)
	}
	return res, nil
}
