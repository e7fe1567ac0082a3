// Package events publishes run lifecycle events.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// RunCompleted is emitted after a run finishes successfully.
type RunCompleted struct {
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	Samples    int       `json:"samples"`
	Seed       uint64    `json:"seed"`
	Estimate   float64   `json:"estimate"`
	Reference  float64   `json:"reference"`
	AbsError   float64   `json:"abs_error"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, ev RunCompleted) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by run ID.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(w, topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.With("component", "events"),
	}
}

// PublishRunCompleted writes ev as JSON.
func (p *KafkaPublisher) PublishRunCompleted(ctx context.Context, ev RunCompleted) error {
	if ev.RunID == "" {
		return fmt.Errorf("event missing run_id")
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RunID),
		Value: value,
		Time:  ev.Timestamp,
	}); err != nil {
		return fmt.Errorf("writing to %s: %w", p.topic, err)
	}

	p.logger.Debug("event published", "topic", p.topic, "run_id", ev.RunID)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Verify interface compliance at compile time.
var _ Publisher = (*KafkaPublisher)(nil)

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

// PublishRunCompleted does nothing.
func (NopPublisher) PublishRunCompleted(context.Context, RunCompleted) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}
