// Package kafka publishes lifecycle events to a Kafka topic for downstream
// consumers such as dashboards and archivers.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes lifecycle events as JSON messages keyed by event id.
// It implements pipeline.Sink.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the events topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (*Publisher) Name() string { return "kafka" }

// Deliver publishes a single event.
func (p *Publisher) Deliver(ctx context.Context, event domain.LifecycleEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	p.logger.Debug("event published", "event_id", event.ID, "kind", event.Kind, "outage_id", event.OutageID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a LifecycleEvent into a Kafka message. Hashing
// on the event id keeps replays of the same event on one partition. Reasons
// keep their literal "=>" rather than HTML-escaped \u003e.
func serializeToMessage(event domain.LifecycleEvent) (kafkago.Message, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize lifecycle event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: bytes.TrimRight(buf.Bytes(), "\n"),
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "utility", Value: []byte(event.Utility)},
			{Key: "detected_at", Value: []byte(event.DetectedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
