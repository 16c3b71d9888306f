package payment

import (
	"testing"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatewayOrder() *orders.Order {
	return &orders.Order{
		Number:         "ORD000010",
		PaymentMethod:  orders.PaymentGateway,
		PaymentStatus:  orders.PaymentPending,
		Status:         orders.StatusPending,
		GatewayOrderID: "order_9A33XWu170gUtm",
	}
}

func TestSignIsKeyed(t *testing.T) {
	v := NewVerifier("secret")
	sig := v.Sign("order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, NewVerifier("secret").Sign("order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f"))
	assert.NotEqual(t, sig, NewVerifier("other").Sign("order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f"))
}

func TestCheckValidSignature(t *testing.T) {
	v := NewVerifier("secret")
	o := gatewayOrder()

	got, err := v.Check(o, "pay_1", v.Sign(o.GatewayOrderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, got)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus, "Check must not mutate")
}

func TestCheckInvalidSignature(t *testing.T) {
	v := NewVerifier("secret")
	o := gatewayOrder()

	_, err := v.Check(o, "pay_1", NewVerifier("wrong").Sign(o.GatewayOrderID, "pay_1"))
	assert.ErrorIs(t, err, orders.ErrInvalidSignature)

	_, err = v.Check(o, "pay_1", "not-hex")
	assert.ErrorIs(t, err, orders.ErrInvalidSignature)

	// signature for another payment id
	_, err = v.Check(o, "pay_2", v.Sign(o.GatewayOrderID, "pay_1"))
	assert.ErrorIs(t, err, orders.ErrInvalidSignature)
}

func TestCheckIdempotentAndDuplicate(t *testing.T) {
	v := NewVerifier("secret")
	o := gatewayOrder()
	o.PaymentStatus = orders.PaymentCompleted
	o.GatewayPaymentID = "pay_1"

	got, err := v.Check(o, "pay_1", "anything")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyVerified, got)

	_, err = v.Check(o, "pay_2", v.Sign(o.GatewayOrderID, "pay_2"))
	assert.ErrorIs(t, err, orders.ErrDuplicatePayment)

	o.PaymentStatus = orders.PaymentRefunded
	_, err = v.Check(o, "pay_1", v.Sign(o.GatewayOrderID, "pay_1"))
	assert.ErrorIs(t, err, orders.ErrDuplicatePayment)
}

func TestCheckCashSentinel(t *testing.T) {
	v := NewVerifier("secret")
	cod := &orders.Order{Number: "ORD000011", PaymentMethod: orders.PaymentCOD, PaymentStatus: orders.PaymentPending}

	got, err := v.Check(cod, CashSentinel, CashSentinel)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, got)

	_, err = v.Check(gatewayOrder(), CashSentinel, CashSentinel)
	assert.ErrorIs(t, err, orders.ErrPaymentMethodMismatch)
}

func TestCheckRequiresGatewayOrder(t *testing.T) {
	v := NewVerifier("secret")
	o := &orders.Order{Number: "ORD000012", PaymentMethod: orders.PaymentCOD, PaymentStatus: orders.PaymentPending}

	_, err := v.Check(o, "pay_1", "abcd")
	assert.ErrorIs(t, err, orders.ErrPaymentMethodMismatch)

	_, err = v.Check(o, "", "")
	assert.ErrorIs(t, err, orders.ErrValidation)
}
