package application

import (
	"context"

	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

type EventRepository interface {
	Insert(ctx context.Context, e domain.Event, placed outbox.Event) error
	Update(ctx context.Context, e domain.Event) error
	Get(ctx context.Context, id string) (domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Delete(ctx context.Context, id string) error
}

type BookingLedger interface {
	GetBooking(ctx context.Context, id, credential string) (domain.BookingRef, error)
}
