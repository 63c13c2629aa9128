package amqp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/notification/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/mq"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte) error
}

// Source is satisfied by *mq.Consumer.
type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
	Close() error
}

type Consumer struct {
	log        *slog.Logger
	src        Source
	handler    Handler
	requeueGap time.Duration
}

// NewConsumer reads from src. A failed delivery is requeued after requeueGap.
func NewConsumer(log *slog.Logger, src Source, handler Handler, requeueGap time.Duration) *Consumer {
	return &Consumer{log: log, src: src, handler: handler, requeueGap: requeueGap}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.src.Close()

	deliveries, err := c.src.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp: delivery channel closed")
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	msgCtx := tracing.ExtractMap(ctx, mq.Headers(d))
	err := c.handler.Handle(msgCtx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
		return
	case errors.Is(err, domain.ErrMalformed):
		c.log.Error("dropping malformed message", "routing_key", d.RoutingKey, "message_id", d.MessageId, "err", err)
		_ = d.Ack(false)
		return
	}

	c.log.Warn("notification failed, requeueing", "routing_key", d.RoutingKey, "message_id", d.MessageId, "err", err)
	select {
	case <-ctx.Done():
	case <-time.After(c.requeueGap):
	}
	_ = d.Nack(false, true)
}
