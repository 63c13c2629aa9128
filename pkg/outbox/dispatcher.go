package outbox

import (
	"context"
	"errors"
	"log/slog"
	"maps"
)

// Publisher delivers one message to the bus. topic selects the Kafka topic or AMQP routing key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error
}

type Dispatcher struct {
	log       *slog.Logger
	publisher Publisher
}

func NewDispatcher(log *slog.Logger, publisher Publisher) *Dispatcher {
	return &Dispatcher{log: log, publisher: publisher}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := make(map[string]string, len(event.Headers)+2)
	maps.Copy(headers, event.Headers)
	headers["event_type"] = event.Type
	if event.Traceparent != "" {
		headers["traceparent"] = event.Traceparent
	}

	if err := d.publisher.Publish(ctx, event.Type, event.AggregateID, event.Payload, headers); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "type", event.Type, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type, "aggregate_id", event.AggregateID)
	return nil
}

// ErrPermanent marks a publish error that retrying cannot fix.
var ErrPermanent = errors.New("permanent")

// NopPublisher drops every message. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, []byte, map[string]string) error {
	return nil
}
