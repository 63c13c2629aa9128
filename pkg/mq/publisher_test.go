package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type recordingChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func TestPublishUsesTopicAsRoutingKey(t *testing.T) {
	ch := &recordingChannel{}
	p := NewPublisherWithChannel(ch, "facility.events")

	err := p.Publish(context.Background(), "booking-placed", "b-1", []byte(`{"entityId":"b-1"}`),
		map[string]string{"traceparent": "00-abc-def-01"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ch.exchange != "facility.events" || ch.key != "booking-placed" {
		t.Fatalf("exchange=%q key=%q", ch.exchange, ch.key)
	}
	if ch.msg.MessageId != "b-1" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("publishing = %+v", ch.msg)
	}

	got := Headers(amqp.Delivery{Headers: ch.msg.Headers})
	if got["traceparent"] != "00-abc-def-01" {
		t.Fatalf("headers = %v", got)
	}
}
