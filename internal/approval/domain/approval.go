package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
)

var (
	ErrApproverValidationFailed = apperr.New(apperr.Validation, "APPROVER_VALIDATION_FAILED", "approver could not be verified")
	ErrInsufficientPrivilege    = apperr.New(apperr.PermissionDenied, "INSUFFICIENT_PRIVILEGE", "approver is not allowed to record decisions")
	ErrEventNotFound            = apperr.New(apperr.NotFound, "EVENT_NOT_FOUND", "event not found")
	ErrApprovalNotFound         = apperr.New(apperr.NotFound, "APPROVAL_NOT_FOUND", "approval not found")
	ErrInvalidStatus            = apperr.New(apperr.Validation, "INVALID_STATUS", "status must be APPROVED or REJECTED")
	ErrIdempotencyKeyReused     = apperr.New(apperr.Conflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key was already used for a different decision")
)

type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", ErrInvalidStatus
}

// Approval is one recorded decision. An event may collect any number of them; the latest one is
// not special.
type Approval struct {
	ID             string    `json:"id"`
	EventID        string    `json:"eventId"`
	ApproverID     string    `json:"approverId"`
	Status         Status    `json:"status"`
	Comment        string    `json:"comment"`
	ApprovedAt     time.Time `json:"approvedAt"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

// EventRef is the part of an Event Registry record the workflow needs.
type EventRef struct {
	ID          string `json:"id"`
	OrganizerID string `json:"organizerId"`
}
