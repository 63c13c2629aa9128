package application

import (
	"context"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/domain"
)

type ApprovalRepository interface {
	// Insert stores a. When a carries an idempotency key already used for the same event and
	// approver, the stored approval is returned with created=false.
	Insert(ctx context.Context, a domain.Approval) (stored domain.Approval, created bool, err error)
	FindByKey(ctx context.Context, eventID, approverID, key string) (domain.Approval, error)
	Update(ctx context.Context, a domain.Approval) error
	Get(ctx context.Context, id string) (domain.Approval, error)
	List(ctx context.Context) ([]domain.Approval, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Approval, error)
	Delete(ctx context.Context, id string) error
}

type EventRegistry interface {
	GetEvent(ctx context.Context, id, credential string) (domain.EventRef, error)
}
