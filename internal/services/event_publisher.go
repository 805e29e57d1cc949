package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// SecurityEvent is the wire form of a lock/alert event. The transport is an
// external collaborator; components only write to the publisher interface.
type SecurityEvent struct {
	Type      string         `json:"type"`
	AccountID string         `json:"account_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventPublisher broadcasts security events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event SecurityEvent) error
}

// NoopPublisher drops events. Used when no transport is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, SecurityEvent) error { return nil }

// KafkaPublisher writes security events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("security event publisher initialized", slog.String("brokers", brokers), slog.String("topic", topic))
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// Publish sends the event. Errors are returned for the caller to log;
// publishing is never allowed to fail a login.
func (p *KafkaPublisher) Publish(ctx context.Context, event SecurityEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := event.AccountID
	if key == "" {
		key = event.Type
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
	})
}

// Close shuts down the Kafka writer.
func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
