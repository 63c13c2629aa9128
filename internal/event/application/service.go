package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	errInactive       = errors.New("user account is inactive")
	errMissingRequest = errors.New("requester id is required")
)

type Request struct {
	OrganizerID       string
	Name              string
	Type              string
	BookingID         string
	ExpectedAttendees int
}

type Service struct {
	log      *slog.Logger
	repo     EventRepository
	bookings BookingLedger
	users    directory.UserDirectory
	policy   domain.CapacityPolicy
	now      func() time.Time
}

func NewService(log *slog.Logger, repo EventRepository, bookings BookingLedger, users directory.UserDirectory, policy domain.CapacityPolicy) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		bookings: bookings,
		users:    users,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateEvent(ctx context.Context, req Request, credential string) (domain.Event, error) {
	organizer, err := s.validate(ctx, req, credential)
	if err != nil {
		return domain.Event{}, err
	}

	now := s.now()
	e := domain.Event{
		ID:                uuid.NewString(),
		OrganizerID:       req.OrganizerID,
		Name:              req.Name,
		Type:              req.Type,
		BookingID:         req.BookingID,
		ExpectedAttendees: req.ExpectedAttendees,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	placed, err := outbox.NewPlaced("event", outbox.TopicEventPlaced, e.ID, organizer.Email, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Event{}, err
	}
	if err := s.repo.Insert(ctx, e, placed); err != nil {
		return domain.Event{}, err
	}

	s.log.Info("event created", "event_id", e.ID, "booking_id", e.BookingID, "organizer_id", e.OrganizerID,
		"expected_attendees", e.ExpectedAttendees)
	return e, nil
}

// UpdateEvent lets the current organizer change the event. The organizer itself cannot change;
// booking ownership and capacity are checked again against the new values.
func (s *Service) UpdateEvent(ctx context.Context, id, requesterID string, req Request, credential string) (domain.Event, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if requesterID == "" || requesterID != current.OrganizerID {
		return domain.Event{}, domain.ErrPermissionDenied
	}

	req.OrganizerID = current.OrganizerID
	if _, err := s.validate(ctx, req, credential); err != nil {
		return domain.Event{}, err
	}

	updated := current
	updated.Name = req.Name
	updated.Type = req.Type
	updated.BookingID = req.BookingID
	updated.ExpectedAttendees = req.ExpectedAttendees
	updated.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, updated); err != nil {
		return domain.Event{}, err
	}
	s.log.Info("event updated", "event_id", id)
	return updated, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.List(ctx)
}

// DeleteEvent is allowed for the organizer and for administrators.
func (s *Service) DeleteEvent(ctx context.Context, id, requesterID, credential string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if requesterID == "" {
		return domain.ErrPermissionDenied.WithCause(errMissingRequest)
	}
	if requesterID != current.OrganizerID {
		requester, err := s.users.GetUser(ctx, requesterID, credential)
		if err != nil {
			return domain.ErrPermissionDenied.WithCause(err)
		}
		if requester.Role != directory.RoleAdmin || !requester.IsActive() {
			return domain.ErrPermissionDenied
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("event deleted", "event_id", id, "requester_id", requesterID)
	return nil
}

// validate runs the booking and organizer lookups concurrently, then the ownership and capacity
// rules. A booking failure is reported ahead of an organizer failure.
func (s *Service) validate(ctx context.Context, req Request, credential string) (directory.User, error) {
	var (
		booking                  domain.BookingRef
		organizer                directory.User
		bookingErr, organizerErr error
		g                        errgroup.Group
	)
	g.Go(func() error {
		booking, bookingErr = s.bookings.GetBooking(ctx, req.BookingID, credential)
		return nil
	})
	g.Go(func() error {
		organizer, organizerErr = s.users.GetUser(ctx, req.OrganizerID, credential)
		return nil
	})
	_ = g.Wait()

	if bookingErr != nil {
		return directory.User{}, domain.ErrInvalidBooking.WithCause(bookingErr)
	}
	if organizerErr != nil {
		return directory.User{}, domain.ErrInvalidOrganizer.WithCause(organizerErr)
	}
	if !organizer.IsActive() {
		return directory.User{}, domain.ErrInvalidOrganizer.WithCause(errInactive)
	}

	if err := domain.CheckOwnership(booking.UserID, req.OrganizerID); err != nil {
		return directory.User{}, err
	}
	if err := s.policy.Check(organizer.Role, req.ExpectedAttendees); err != nil {
		return directory.User{}, err
	}
	return organizer, nil
}
