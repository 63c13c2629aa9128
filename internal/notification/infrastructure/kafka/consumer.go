package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/notification/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte) error
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader joins group on every topic in topics.
func NewReader(brokers []string, group string, topics []string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     group,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
}

type Consumer struct {
	log        *slog.Logger
	reader     Reader
	handler    Handler
	minBackoff time.Duration
	maxBackoff time.Duration
}

type Option func(*Consumer)

func WithBackoff(first, limit time.Duration) Option {
	return func(c *Consumer) {
		c.minBackoff, c.maxBackoff = first, limit
	}
}

func NewConsumer(log *slog.Logger, reader Reader, handler Handler, opts ...Option) *Consumer {
	c := &Consumer{
		log:        log,
		reader:     reader,
		handler:    handler,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is cancelled. A message is committed only once it was handled or found
// malformed; a transient failure is retried in place so later offsets are never committed past it.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	backoff := c.minBackoff
	for {
		err := c.handler.Handle(msgCtx, msg.Topic, msg.Value)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrMalformed):
			c.log.Error("dropping malformed message", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return nil
		}

		c.log.Warn("notification failed, retrying", "topic", msg.Topic, "offset", msg.Offset, "backoff", backoff, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}
