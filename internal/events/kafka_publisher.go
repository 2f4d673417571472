package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// kafkaWriter is the part of *kafka.Writer the publisher needs.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes envelopes keyed by event key, so every signal stays
// on one partition and keeps its order.
type KafkaPublisher struct {
	writer kafkaWriter
}

func NewKafkaPublisher(w kafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// NewKafkaWriter returns a writer for topic with hash partitioning on the
// message key.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.Device + "/" + env.Event.Key()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "device", Value: []byte(env.Device)},
			{Key: "change", Value: []byte(env.Change)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
