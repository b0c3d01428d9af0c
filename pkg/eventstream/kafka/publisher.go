// Package kafka publishes project events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/folio/pkg/eventstream"
)

const (
	DefaultTopic        = "folio.projects"
	defaultWriteTimeout = 10 * time.Second
)

// HeaderEventType carries the event type so consumers can filter without
// decoding the payload.
const HeaderEventType = "event_type"

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by project id, so
// events for a project keep their order within a partition.
type Publisher struct {
	writer       MessageWriter
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewPublisher creates a publisher backed by a kafka-go writer.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka publisher configured", "brokers", c.Brokers, "topic", c.Topic)
	return NewPublisherWithWriter(w, c.WriteTimeout, logger), nil
}

// NewPublisherWithWriter creates a publisher on an existing writer.
func NewPublisherWithWriter(w MessageWriter, writeTimeout time.Duration, logger *slog.Logger) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Publisher{writer: w, writeTimeout: writeTimeout, logger: logger}
}

// PublishProject writes event to the topic.
func (p *Publisher) PublishProject(ctx context.Context, event *eventstream.ProjectEvent) error {
	if event == nil {
		return eventstream.ErrNilProjectEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", event.EventType, err)
	}

	p.logger.Debug("event published",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"project_id", event.ProjectID,
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
