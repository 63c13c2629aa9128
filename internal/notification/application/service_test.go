package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmehra2102/Facility-Booking-System/internal/notification/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/idempotency"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/redis/go-redis/v9"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []domain.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, e domain.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newService(t *testing.T) (*Service, *fakeSender, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sender := &fakeSender{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, idempotency.NewStore(rdb, time.Hour), sender), sender, mr
}

const bookingPayload = `{"entityId":"b-1","notifyEmail":"ada@campus.edu"}`

func TestRedeliveryIsSentOnce(t *testing.T) {
	svc, sender, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Handle(ctx, outbox.TopicBookingPlaced, []byte(bookingPayload)); err != nil {
			t.Fatalf("Handle #%d: %v", i, err)
		}
	}
	if sender.count() != 1 {
		t.Fatalf("sent %d emails, want 1", sender.count())
	}

	// Same entity id on the other topic is a different message.
	if err := svc.Handle(ctx, outbox.TopicEventPlaced, []byte(bookingPayload)); err != nil {
		t.Fatal(err)
	}
	if sender.count() != 2 {
		t.Fatalf("sent %d emails, want 2", sender.count())
	}
}

func TestConcurrentRedeliverySentOnce(t *testing.T) {
	svc, sender, _ := newService(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Handle(context.Background(), outbox.TopicEventPlaced, []byte(`{"entityId":"e-9","notifyEmail":"x@campus.edu"}`))
		}()
	}
	wg.Wait()
	if sender.count() != 1 {
		t.Fatalf("sent %d emails, want 1", sender.count())
	}
}

func TestFailedSendIsRetried(t *testing.T) {
	svc, sender, _ := newService(t)
	ctx := context.Background()

	sender.err = errors.New("smtp: connection refused")
	if err := svc.Handle(ctx, outbox.TopicBookingPlaced, []byte(bookingPayload)); err == nil {
		t.Fatal("want send error")
	}

	sender.err = nil
	if err := svc.Handle(ctx, outbox.TopicBookingPlaced, []byte(bookingPayload)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("sent %d emails, want 1", sender.count())
	}
}

func TestRedisDownIsTransient(t *testing.T) {
	svc, sender, mr := newService(t)
	mr.Close()

	err := svc.Handle(context.Background(), outbox.TopicBookingPlaced, []byte(bookingPayload))
	if err == nil || errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("err = %v, want a transient error", err)
	}
	if sender.count() != 0 {
		t.Fatal("nothing may be sent without a claim")
	}
}

func TestMalformedMessage(t *testing.T) {
	svc, sender, _ := newService(t)

	err := svc.Handle(context.Background(), outbox.TopicBookingPlaced, []byte(`[]`))
	if !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if sender.count() != 0 {
		t.Fatal("malformed message was sent")
	}
}
