package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int           // default 1B
	MaxBytes       int           // default 1MB
	CommitInterval time.Duration // 0 = sync commit per message
	MaxWait        time.Duration // default 1s
}

// Consumer is a thin wrapper around segmentio/kafka-go Reader. Run requests
// are few and slow to process, so commits are synchronous by default.
type Consumer struct {
	r *kafka.Reader
}

func NewConsumerFromConfig(c Config) *Consumer {
	minBytes := c.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := c.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20 // 1MB
	}
	mw := c.MaxWait
	if mw <= 0 {
		mw = time.Second
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
		CommitInterval: c.CommitInterval,
		MaxWait:        mw,
		StartOffset:    kafka.LastOffset,
	})
	return &Consumer{r: r}
}

type Message = kafka.Message

func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

func (c *Consumer) Close() error { return c.r.Close() }
