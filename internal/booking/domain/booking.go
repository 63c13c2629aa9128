package domain

import (
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
)

var (
	ErrRoomValidationFailed = apperr.New(apperr.Validation, "ROOM_VALIDATION_FAILED", "room validation failed")
	ErrUserValidationFailed = apperr.New(apperr.Validation, "USER_VALIDATION_FAILED", "user validation failed")
	ErrRoomAlreadyOccupied  = apperr.New(apperr.Conflict, "ROOM_ALREADY_OCCUPIED", "room is already booked for the requested time")
	ErrBookingNotFound      = apperr.New(apperr.NotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrInvalidTimeRange     = apperr.New(apperr.Validation, "INVALID_TIME_RANGE", "end time must be after start time")
)

type Booking struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	RoomID    string    `json:"roomId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Overlaps reports whether b and [start, end) share any instant. Ranges are half-open, so a
// booking ending at 11:00 does not overlap one starting at 11:00.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}

func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidTimeRange
	}
	return nil
}

type Filter struct {
	UserID string
	RoomID string
}

func (f Filter) Match(b Booking) bool {
	return (f.UserID == "" || f.UserID == b.UserID) && (f.RoomID == "" || f.RoomID == b.RoomID)
}
