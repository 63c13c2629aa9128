package application

import (
	"context"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

// BookingRepository owns the per-room non-overlap guarantee: Insert and Update check for overlaps
// and write in one step that no other writer on the same room can interleave with.
type BookingRepository interface {
	Insert(ctx context.Context, b domain.Booking, placed outbox.Event) error
	Update(ctx context.Context, b domain.Booking) error
	Get(ctx context.Context, id string) (domain.Booking, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Booking, error)
	Delete(ctx context.Context, id string) error
}
