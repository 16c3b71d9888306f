package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deliverer hands an event to whatever channel reaches people (email,
// sockets). Delivery itself lives outside this service.
type Deliverer interface {
	Deliver(ctx context.Context, env orders.Envelope) error
}

// LogDeliverer records events in the log only.
type LogDeliverer struct{ Log *zap.Logger }

func (d LogDeliverer) Deliver(_ context.Context, env orders.Envelope) error {
	fields, err := summarize(env)
	if err != nil {
		d.Log.Warn("notification_payload_undecodable", zap.String("event_id", env.EventID), zap.Error(err))
		fields = []zap.Field{zap.ByteString("payload", env.Payload)}
	}
	fields = append(fields,
		zap.String("event_id", env.EventID),
		zap.String("event", env.EventType),
		zap.String("order_number", env.CorrelationID),
	)
	d.Log.Info("notification_delivered", fields...)
	return nil
}

// summarize picks the recipient-facing fields of each event.
func summarize(env orders.Envelope) ([]zap.Field, error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []zap.Field{zap.String("buyer_id", p.BuyerID), zap.String("seller_id", p.SellerID), zap.Int64("total_cents", p.TotalCents)}, nil
	case orders.EventPaymentVerified:
		p, err := kafkax.UnwrapPayload[orders.PaymentVerifiedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []zap.Field{zap.String("seller_id", p.SellerID), zap.String("payment_id", p.PaymentID)}, nil
	case orders.EventStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []zap.Field{zap.String("buyer_id", p.BuyerID), zap.String("to", string(p.To)), zap.Int("points_earned", p.PointsEarned)}, nil
	case orders.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []zap.Field{zap.String("buyer_id", p.BuyerID), zap.String("seller_id", p.SellerID), zap.String("reason", p.Reason)}, nil
	default:
		return []zap.Field{zap.ByteString("payload", env.Payload)}, nil
	}
}

// Dispatcher consumes order events, drops duplicates by event id and passes
// the rest to a Deliverer.
type Dispatcher struct {
	Redis       redis.Cmdable
	Deliverer   Deliverer
	ServiceName string
	Log         *zap.Logger
}

// HandleMessage is installed as the Kafka consumer handler.
func (d *Dispatcher) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and let the offset advance
		d.Log.Error("notification_decode_failed", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventID == "" {
		d.Log.Warn("notification_without_id", zap.String("event", env.EventType))
		return nil
	}

	key := fmt.Sprintf(redisx.KeyDedup, d.ServiceName, env.EventID)
	fresh, err := redisx.Claim(ctx, d.Redis, key, "1", redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !fresh {
		d.Log.Debug("notification_duplicate", zap.String("event_id", env.EventID))
		return nil
	}

	if err := d.Deliverer.Deliver(ctx, env); err != nil {
		// release the claim so a redelivery can try again
		_ = d.Redis.Del(ctx, key).Err()
		return fmt.Errorf("deliver %s: %w", env.EventID, err)
	}
	return nil
}
