package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/domain"
	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/google/uuid"
)

var errInactive = errors.New("user account is inactive")

type Decision struct {
	EventID        string
	ApproverID     string
	Status         string
	Comment        string
	IdempotencyKey string
}

type Service struct {
	log    *slog.Logger
	repo   ApprovalRepository
	events EventRegistry
	users  directory.UserDirectory
	now    func() time.Time
}

func NewService(log *slog.Logger, repo ApprovalRepository, events EventRegistry, users directory.UserDirectory) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		events: events,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordApproval checks the approver's privilege before looking at the event, so an unprivileged
// caller learns nothing about which events exist. It reports created=false when the idempotency key
// matched an earlier identical decision, which is then returned unchanged. Reusing a key for a
// different status or comment is a conflict.
func (s *Service) RecordApproval(ctx context.Context, d Decision, credential string) (domain.Approval, bool, error) {
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		return domain.Approval{}, false, err
	}

	if d.IdempotencyKey != "" {
		prev, err := s.repo.FindByKey(ctx, d.EventID, d.ApproverID, d.IdempotencyKey)
		if err == nil {
			return s.replay(prev, status, d.Comment)
		}
		if !errors.Is(err, domain.ErrApprovalNotFound) {
			return domain.Approval{}, false, err
		}
	} else {
		s.log.Warn("approval without idempotency key", "event_id", d.EventID, "approver_id", d.ApproverID)
	}

	if err := s.checkApprover(ctx, d.ApproverID, credential); err != nil {
		return domain.Approval{}, false, err
	}
	if _, err := s.events.GetEvent(ctx, d.EventID, credential); err != nil {
		return domain.Approval{}, false, domain.ErrEventNotFound.WithCause(err)
	}

	a := domain.Approval{
		ID:             uuid.NewString(),
		EventID:        d.EventID,
		ApproverID:     d.ApproverID,
		Status:         status,
		Comment:        d.Comment,
		ApprovedAt:     s.now(),
		IdempotencyKey: d.IdempotencyKey,
	}
	stored, created, err := s.repo.Insert(ctx, a)
	if err != nil {
		return domain.Approval{}, false, err
	}
	if !created {
		return s.replay(stored, status, d.Comment)
	}
	s.log.Info("approval recorded", "approval_id", stored.ID, "event_id", stored.EventID, "status", stored.Status)
	return stored, true, nil
}

func (s *Service) replay(prev domain.Approval, status domain.Status, comment string) (domain.Approval, bool, error) {
	if prev.Status != status || prev.Comment != comment {
		s.log.Warn("idempotency key reused", "approval_id", prev.ID, "event_id", prev.EventID)
		return domain.Approval{}, false, domain.ErrIdempotencyKeyReused
	}
	s.log.Info("approval replayed", "approval_id", prev.ID, "event_id", prev.EventID)
	return prev, false, nil
}

// UpdateApproval changes the decision. The approver making the change must be privileged and
// becomes the approver of record.
func (s *Service) UpdateApproval(ctx context.Context, id string, d Decision, credential string) (domain.Approval, error) {
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		return domain.Approval{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Approval{}, err
	}
	if d.ApproverID == "" {
		d.ApproverID = current.ApproverID
	}
	if err := s.checkApprover(ctx, d.ApproverID, credential); err != nil {
		return domain.Approval{}, err
	}

	updated := current
	updated.ApproverID = d.ApproverID
	updated.Status = status
	updated.Comment = d.Comment
	updated.ApprovedAt = s.now()
	if err := s.repo.Update(ctx, updated); err != nil {
		return domain.Approval{}, err
	}
	s.log.Info("approval updated", "approval_id", id, "status", status)
	return updated, nil
}

func (s *Service) GetApproval(ctx context.Context, id string) (domain.Approval, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListApprovals(ctx context.Context) ([]domain.Approval, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListApprovalsForEvent(ctx context.Context, eventID string) ([]domain.Approval, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *Service) DeleteApproval(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("approval deleted", "approval_id", id)
	return nil
}

func (s *Service) checkApprover(ctx context.Context, approverID, credential string) error {
	approver, err := s.users.GetUser(ctx, approverID, credential)
	if err != nil {
		return domain.ErrApproverValidationFailed.WithCause(err)
	}
	if !approver.IsActive() {
		return domain.ErrApproverValidationFailed.WithCause(errInactive)
	}
	if !approver.Role.IsPrivileged() {
		s.log.Info("approval refused", "approver_id", approverID, "role", string(approver.Role))
		return domain.ErrInsufficientPrivilege
	}
	return nil
}
