package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher writes JSON messages to one topic.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// PublishJSON encodes v and writes it under key; messages with the same key
// (a firm id) keep their order.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	value, err := encode(key, v)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("publish to %s: %w", p.w.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }

func encode(key string, v any) ([]byte, error) {
	value, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message %s: %w", key, err)
	}
	return value, nil
}
