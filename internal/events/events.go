// Package events publishes review lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/dagnyr/canvas-critic/internal/domain"
	"github.com/dagnyr/canvas-critic/internal/reviewapi"
)

// TypeReviewSubmitted is the event type emitted after a review is stored.
const TypeReviewSubmitted = "review.submitted"

// Event is the envelope written as the Kafka message value.
type Event struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
}

// NewReviewSubmitted builds the envelope for a stored review. The class id is
// the aggregate id so all events for a class land on one partition.
func NewReviewSubmitted(source string, r domain.Review) (Event, error) {
	data, err := json.Marshal(reviewapi.NewReview(r))
	if err != nil {
		return Event{}, fmt.Errorf("marshal review: %w", err)
	}
	return Event{
		EventID:     uuid.NewString(),
		EventType:   TypeReviewSubmitted,
		AggregateID: r.ClassID,
		Timestamp:   time.Now().UTC(),
		Source:      source,
		Data:        data,
	}, nil
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes review events to a single topic.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	source string
	logger *zap.Logger
}

// NewKafkaPublisher creates a synchronous publisher for the given brokers.
func NewKafkaPublisher(brokers []string, topic, source string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return NewPublisherWithWriter(w, topic, source, logger)
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter, topic, source string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, topic: topic, source: source, logger: logger}
}

// ReviewSubmitted publishes a review.submitted event.
func (p *KafkaPublisher) ReviewSubmitted(ctx context.Context, r domain.Review) error {
	ev, err := NewReviewSubmitted(p.source, r)
	if err != nil {
		return err
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(ev.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "source", Value: []byte(ev.Source)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event to %s: %w", p.topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", p.topic),
		zap.String("event_type", ev.EventType),
		zap.String("aggregate_id", ev.AggregateID),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

// ReviewSubmitted does nothing.
func (Nop) ReviewSubmitted(context.Context, domain.Review) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
