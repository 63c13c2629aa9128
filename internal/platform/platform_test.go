package platform

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

func TestNewPublisher(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, closeFn, err := NewPublisher(log, config.Bus{Driver: "none"})
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if _, ok := pub.(outbox.NopPublisher); !ok {
		t.Fatalf("none gave %T", pub)
	}
	closeFn()

	pub, closeFn, err = NewPublisher(log, config.Bus{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("kafka: %v", err)
	}
	if _, ok := pub.(*outbox.KafkaPublisher); !ok {
		t.Fatalf("kafka gave %T", pub)
	}
	closeFn()

	if _, _, err := NewPublisher(log, config.Bus{Driver: "carrier-pigeon"}); err == nil {
		t.Fatal("unknown driver must fail")
	}
}

func TestStartRelayDrainsMemoryStore(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := outbox.NewMemoryStore()
	ev, err := outbox.NewPlaced("booking", outbox.TopicBookingPlaced, "b-1", "ada@campus.edu", "")
	if err != nil {
		t.Fatal(err)
	}
	store.Append(ev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRelay(ctx, log, store, outbox.NopPublisher{}, "test-relay")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if store.Events()[0].Status == outbox.StatusSent {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("event status = %s, want sent", store.Events()[0].Status)
}
