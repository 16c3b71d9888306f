package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// CashSentinel is sent as both payment id and signature to confirm a
// cash-on-fulfillment order.
const CashSentinel = "COD"

type Outcome int

const (
	// OutcomeVerified means the caller should record the payment.
	OutcomeVerified Outcome = iota + 1
	// OutcomeAlreadyVerified means the same payment was recorded before.
	OutcomeAlreadyVerified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeAlreadyVerified:
		return "already_verified"
	default:
		return "unknown"
	}
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier { return &Verifier{secret: []byte(secret)} }

// Sign returns hex(HMAC-SHA256(secret, gatewayOrderID|paymentID)).
func (v *Verifier) Sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Check decides whether a payment callback is authentic. It never mutates o.
func (v *Verifier) Check(o *orders.Order, paymentID, signature string) (Outcome, error) {
	if paymentID == "" || signature == "" {
		return 0, orders.Validationf("payment id and signature are required")
	}

	if o.PaymentStatus == orders.PaymentCompleted && o.GatewayPaymentID != "" {
		if o.GatewayPaymentID == paymentID {
			return OutcomeAlreadyVerified, nil
		}
		return 0, orders.ErrDuplicatePayment
	}
	if o.PaymentStatus == orders.PaymentRefunded {
		return 0, fmt.Errorf("%w: payment was refunded", orders.ErrDuplicatePayment)
	}

	if paymentID == CashSentinel && signature == CashSentinel {
		if o.PaymentMethod != orders.PaymentCOD {
			return 0, fmt.Errorf("%w: order %s is not cash-on-fulfillment", orders.ErrPaymentMethodMismatch, o.Number)
		}
		return OutcomeVerified, nil
	}

	if o.GatewayOrderID == "" {
		return 0, fmt.Errorf("%w: order %s has no gateway order", orders.ErrPaymentMethodMismatch, o.Number)
	}

	expected, err := hex.DecodeString(v.Sign(o.GatewayOrderID, paymentID))
	if err != nil {
		return 0, err
	}
	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(expected, got) {
		return 0, orders.ErrInvalidSignature
	}
	return OutcomeVerified, nil
}
