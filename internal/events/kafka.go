package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by event type.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Name returns the transport name.
func (k *KafkaPublisher) Name() string {
	return "kafka"
}

// Publish implements Publisher.
func (k *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
		Time:  event.Timestamp,
	}); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
