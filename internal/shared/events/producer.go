package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher publishes order events. Implementations must be non-blocking.
type Publisher interface {
	Publish(eventType, correlationID string, payload any)
	Close()
}

// KafkaPublisher publishes events to a Kafka topic through a buffered
// in-process channel so request handlers never wait on the broker.
type KafkaPublisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	logger  *zap.Logger
}

// NewKafkaPublisher creates a Kafka publisher and starts its write loop.
func NewKafkaPublisher(brokers []string, topic string, buf int, logger *zap.Logger) *KafkaPublisher {
	if buf <= 0 {
		buf = 256
	}
	p := &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger,
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			p.logger.Error("publish event", zap.Error(err), zap.String("key", string(m.Key)))
		}
	}
	if err := p.w.Close(); err != nil {
		p.logger.Error("close kafka writer", zap.Error(err))
	}
	close(p.closeCh)
}

// Publish enqueues an event. Events are dropped with a log entry when the
// buffer is full rather than blocking the caller.
func (p *KafkaPublisher) Publish(eventType, correlationID string, payload any) {
	env, err := NewEnvelope(eventType, correlationID, payload)
	if err != nil {
		p.logger.Error("marshal event payload", zap.Error(err), zap.String("type", eventType))
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("marshal event envelope", zap.Error(err), zap.String("type", eventType))
		return
	}

	msg := kafka.Message{
		// Key by order ID so all events for one order stay ordered.
		Key:   []byte(correlationID),
		Value: value,
		Time:  time.Now(),
	}

	select {
	case p.inbox <- msg:
	default:
		p.logger.Warn("event buffer full, dropping event",
			zap.String("type", eventType),
			zap.String("correlation_id", correlationID),
		)
	}
}

// Close flushes buffered events and stops the write loop.
func (p *KafkaPublisher) Close() {
	close(p.inbox)
	<-p.closeCh
}

// NopPublisher discards all events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(eventType, correlationID string, payload any) {}
func (NopPublisher) Close()                                              {}
