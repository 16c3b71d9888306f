package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in memory and writes them from one goroutine, so
// callers never wait on the broker.
type Producer struct {
	w         messageWriter
	topic     string
	inbox     chan kafka.Message
	stop      chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("topic", topic))
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error("kafka_write_failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return newProducer(w, topic, buf, log)
}

func newProducer(w messageWriter, topic string, buf int, log *zap.Logger) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:       w,
		topic:   topic,
		inbox:   make(chan kafka.Message, buf),
		stop:    make(chan struct{}),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

func (p *Producer) Topic() string { return p.topic }

func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case <-p.stop:
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Error("kafka_publish_failed", zap.ByteString("key", m.Key), zap.Error(err))
	}
}

// drain flushes whatever is already buffered, then closes the writer.
func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.Warn("kafka_writer_close_failed", zap.Error(err))
			}
			close(p.closeCh)
			return
		}
	}
}

// TryPublish enqueues a message without blocking; false means the buffer was
// full and the message was dropped.
func (p *Producer) TryPublish(key, value []byte, headers ...kafka.Header) bool {
	select {
	case p.inbox <- message(key, value, headers):
		return true
	default:
		return false
	}
}

func message(key, value []byte, headers []kafka.Header) kafka.Message {
	return kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
}

// Close asks the loop to flush and exit; safe to call more than once.
func (p *Producer) Close() { p.closeOnce.Do(func() { close(p.stop) }) }

// Wait until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }
