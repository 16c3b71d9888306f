package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProducer struct {
	topic string
	full  bool
	mu    sync.Mutex
	keys  [][]byte
	vals  [][]byte
}

func (p *fakeProducer) Topic() string { return p.topic }

func (p *fakeProducer) TryPublish(key, value []byte, _ ...kafkago.Header) bool {
	if p.full {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.vals = append(p.vals, value)
	return true
}

type dropRecorder struct{ reasons []string }

func (d *dropRecorder) NotificationDropped(event, reason string) {
	d.reasons = append(d.reasons, event+":"+reason)
}

func TestKafkaPublisherWrapsEnvelope(t *testing.T) {
	created := &fakeProducer{topic: orders.EventOrderCreated}
	pub := NewKafkaPublisher("order-api", nil, created)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-7")
	pub.Publish(ctx, orders.EventOrderCreated, "ORD000042", orders.OrderCreatedPayload{OrderNumber: "ORD000042", TotalCents: 1500})

	require.Len(t, created.vals, 1)
	assert.Equal(t, []byte("ORD000042"), created.keys[0])

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(created.vals[0], &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, orders.EventOrderCreated, env.EventType)
	assert.Equal(t, "order-api", env.Producer)
	assert.Equal(t, "req-7", env.TraceID)
	assert.Equal(t, "ORD000042", env.CorrelationID)

	var p orders.OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, int64(1500), p.TotalCents)
}

func TestKafkaPublisherDropsWithoutBlocking(t *testing.T) {
	drops := &dropRecorder{}
	full := &fakeProducer{topic: orders.EventOrderCancelled, full: true}
	pub := NewKafkaPublisher("order-api", drops, full)

	pub.Publish(context.Background(), orders.EventOrderCancelled, "ORD000001", struct{}{})
	pub.Publish(context.Background(), "order.unknown", "ORD000001", struct{}{})
	pub.Publish(context.Background(), orders.EventOrderCancelled, "ORD000001", make(chan int))

	assert.Equal(t, []string{
		orders.EventOrderCancelled + ":buffer_full",
		"order.unknown:no_topic",
		orders.EventOrderCancelled + ":encode",
	}, drops.reasons)
}

type recordingDeliverer struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (d *recordingDeliverer) Deliver(_ context.Context, env orders.Envelope) error {
	if d.fail != nil {
		return d.fail
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, env.EventID)
	return nil
}

func envelope(t *testing.T, id string) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(orders.Envelope{EventID: id, EventType: orders.EventStatusChanged, CorrelationID: "ORD000003"})
	require.NoError(t, err)
	return kafkago.Message{Topic: orders.EventStatusChanged, Value: b}
}

func TestDispatcherDeduplicates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })

	del := &recordingDeliverer{}
	d := &Dispatcher{Redis: rdb, Deliverer: del, ServiceName: "notifier", Log: zap.NewNop()}
	ctx := context.Background()

	require.NoError(t, d.HandleMessage(ctx, envelope(t, "evt-1")))
	require.NoError(t, d.HandleMessage(ctx, envelope(t, "evt-1")))
	require.NoError(t, d.HandleMessage(ctx, envelope(t, "evt-2")))

	assert.Equal(t, []string{"evt-1", "evt-2"}, del.got)
}

func TestDispatcherSkipsPoisonMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })

	del := &recordingDeliverer{}
	d := &Dispatcher{Redis: rdb, Deliverer: del, ServiceName: "notifier", Log: zap.NewNop()}

	assert.NoError(t, d.HandleMessage(context.Background(), kafkago.Message{Value: []byte("{nope")}))
	assert.NoError(t, d.HandleMessage(context.Background(), envelope(t, "")))
	assert.Empty(t, del.got)
}

func TestDispatcherReleasesClaimOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })

	del := &recordingDeliverer{fail: errors.New("smtp down")}
	d := &Dispatcher{Redis: rdb, Deliverer: del, ServiceName: "notifier", Log: zap.NewNop()}
	ctx := context.Background()

	err := d.HandleMessage(ctx, envelope(t, "evt-9"))
	require.Error(t, err)
	assert.False(t, mr.Exists("dedup:notifier:evt-9"))

	del.fail = nil
	require.NoError(t, d.HandleMessage(ctx, envelope(t, "evt-9")))
	assert.Equal(t, []string{"evt-9"}, del.got)
}

func TestLogDelivererDecodesKnownEvents(t *testing.T) {
	payload, err := json.Marshal(orders.OrderCancelledPayload{OrderNumber: "ORD000004", BuyerID: "b1", Reason: "Cancelled by buyer"})
	require.NoError(t, err)
	d := LogDeliverer{Log: zap.NewNop()}

	assert.NoError(t, d.Deliver(context.Background(), orders.Envelope{EventType: orders.EventOrderCancelled, Payload: payload}))
	assert.NoError(t, d.Deliver(context.Background(), orders.Envelope{EventType: "order.archived", Payload: payload}))
	assert.NoError(t, d.Deliver(context.Background(), orders.Envelope{EventType: orders.EventOrderCreated, Payload: json.RawMessage(`"nope"`)}))

	_, err = summarize(orders.Envelope{EventType: orders.EventOrderCreated, Payload: json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}
