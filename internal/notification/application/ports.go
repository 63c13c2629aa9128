package application

import (
	"context"

	"github.com/dmehra2102/Facility-Booking-System/internal/notification/domain"
)

type Sender interface {
	Send(ctx context.Context, e domain.Email) error
}

// Deduper is satisfied by idempotency.Store.
type Deduper interface {
	Key(topic, entityID string) string
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
