package notify

import (
	"context"
	"encoding/json"
	"time"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher delivers order events on a best-effort basis. Publish must not
// block on I/O and has no error to return: a lost notification never affects
// a committed order.
type Publisher interface {
	Publish(ctx context.Context, event string, orderNumber string, payload any)
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) {}

// DropCounter is told about every event that could not be enqueued.
type DropCounter interface {
	NotificationDropped(event, reason string)
}

// TopicProducer is the non-blocking half of kafka.Producer.
type TopicProducer interface {
	Topic() string
	TryPublish(key, value []byte, headers ...kafkago.Header) bool
}

var _ TopicProducer = (*kafkax.Producer)(nil)

// KafkaPublisher wraps one async producer per event topic.
type KafkaPublisher struct {
	producers map[string]TopicProducer
	service   string
	drops     DropCounter
}

func NewKafkaPublisher(service string, drops DropCounter, producers ...TopicProducer) *KafkaPublisher {
	m := make(map[string]TopicProducer, len(producers))
	for _, p := range producers {
		m[p.Topic()] = p
	}
	return &KafkaPublisher{producers: m, service: service, drops: drops}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event, orderNumber string, payload any) {
	log := logging.FromContext(ctx)

	p, ok := k.producers[event]
	if !ok {
		k.dropped(log, event, orderNumber, "no_topic")
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("notification_encode_failed", zap.String("event", event), zap.Error(err))
		k.dropped(log, event, orderNumber, "encode")
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     event,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      k.service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderNumber,
		Payload:       body,
	}
	if !p.TryPublish(orders.PartitionKey(orderNumber), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(event)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	) {
		k.dropped(log, event, orderNumber, "buffer_full")
	}
}

func (k *KafkaPublisher) dropped(log *zap.Logger, event, orderNumber, reason string) {
	log.Warn("notification_dropped",
		zap.String("event", event),
		zap.String("order_number", orderNumber),
		zap.String("reason", reason),
	)
	if k.drops != nil {
		k.drops.NotificationDropped(event, reason)
	}
}
