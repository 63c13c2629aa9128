package domain

import (
	"fmt"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
)

var (
	ErrInvalidBooking    = apperr.New(apperr.Validation, "INVALID_BOOKING", "booking is missing or could not be verified")
	ErrInvalidOrganizer  = apperr.New(apperr.Validation, "INVALID_ORGANIZER", "organizer is missing or could not be verified")
	ErrOwnershipMismatch = apperr.New(apperr.PermissionDenied, "OWNERSHIP_MISMATCH", "booking does not belong to the organizer")
	ErrUnconfiguredRole  = apperr.New(apperr.ConfigFault, "UNCONFIGURED_ROLE", "no attendee limit configured for role")
	ErrCapacityExceeded  = apperr.New(apperr.PermissionDenied, "CAPACITY_EXCEEDED", "expected attendees exceed the organizer's limit")
	ErrInvalidAttendees  = apperr.New(apperr.Validation, "INVALID_ATTENDEES", "expected attendees must be at least 1")
	ErrEventNotFound     = apperr.New(apperr.NotFound, "EVENT_NOT_FOUND", "event not found")
	ErrPermissionDenied  = apperr.New(apperr.PermissionDenied, "PERMISSION_DENIED", "only the organizer may change this event")
)

type Event struct {
	ID                string    `json:"id"`
	OrganizerID       string    `json:"organizerId"`
	Name              string    `json:"eventName"`
	Type              string    `json:"eventType"`
	BookingID         string    `json:"bookingId"`
	ExpectedAttendees int       `json:"expectedAttendees"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DefaultRoleCaps is the maximum number of expected attendees per organizer role.
var DefaultRoleCaps = map[directory.Role]int{
	directory.RoleAdmin:   700,
	directory.RoleStaff:   400,
	directory.RoleFaculty: 300,
	directory.RoleStudent: 50,
}

type CapacityPolicy struct {
	caps map[directory.Role]int
}

func NewCapacityPolicy(caps map[directory.Role]int) CapacityPolicy {
	if len(caps) == 0 {
		caps = DefaultRoleCaps
	}
	return CapacityPolicy{caps: caps}
}

// Check enforces 1 <= expected <= cap(role). A role with no configured cap is a deployment error,
// not a caller error.
func (p CapacityPolicy) Check(role directory.Role, expected int) error {
	if expected < 1 {
		return ErrInvalidAttendees
	}
	limit, ok := p.caps[role]
	if !ok {
		return ErrUnconfiguredRole.WithCause(fmt.Errorf("role %q", role))
	}
	if expected > limit {
		return ErrCapacityExceeded.WithCause(fmt.Errorf("%d > %d for role %s", expected, limit, role))
	}
	return nil
}

// CheckOwnership requires the booking to have been made by the organizer. User id is the join key.
func CheckOwnership(bookingUserID, organizerID string) error {
	if bookingUserID != organizerID {
		return ErrOwnershipMismatch
	}
	return nil
}

// BookingRef is the part of a Booking Ledger record the registry needs.
type BookingRef struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}
