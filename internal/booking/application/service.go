package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	UserID    string
	RoomID    string
	StartTime time.Time
	EndTime   time.Time
	Purpose   string
}

type Service struct {
	log   *slog.Logger
	repo  BookingRepository
	rooms directory.RoomDirectory
	users directory.UserDirectory
	now   func() time.Time
}

func NewService(log *slog.Logger, repo BookingRepository, rooms directory.RoomDirectory, users directory.UserDirectory) *Service {
	return &Service{
		log:   log,
		repo:  repo,
		rooms: rooms,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateBooking(ctx context.Context, req Request, credential string) (domain.Booking, error) {
	if err := domain.ValidateRange(req.StartTime, req.EndTime); err != nil {
		return domain.Booking{}, err
	}
	user, err := s.validate(ctx, req, credential)
	if err != nil {
		return domain.Booking{}, err
	}

	now := s.now()
	b := domain.Booking{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		RoomID:    req.RoomID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Purpose:   req.Purpose,
		CreatedAt: now,
		UpdatedAt: now,
	}

	placed, err := outbox.NewPlaced("booking", outbox.TopicBookingPlaced, b.ID, user.Email, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.repo.Insert(ctx, b, placed); err != nil {
		return domain.Booking{}, err
	}

	s.log.Info("booking created", "booking_id", b.ID, "room_id", b.RoomID, "user_id", b.UserID)
	return b, nil
}

// UpdateBooking re-validates the new room, user and time range, and re-checks overlap against every
// other booking of the target room.
func (s *Service) UpdateBooking(ctx context.Context, id string, req Request, credential string) (domain.Booking, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if req.UserID == "" {
		req.UserID = current.UserID
	}
	if err := domain.ValidateRange(req.StartTime, req.EndTime); err != nil {
		return domain.Booking{}, err
	}
	if _, err := s.validate(ctx, req, credential); err != nil {
		return domain.Booking{}, err
	}

	updated := current
	updated.UserID = req.UserID
	updated.RoomID = req.RoomID
	updated.StartTime = req.StartTime.UTC()
	updated.EndTime = req.EndTime.UTC()
	updated.Purpose = req.Purpose
	updated.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, updated); err != nil {
		return domain.Booking{}, err
	}
	s.log.Info("booking updated", "booking_id", id, "room_id", updated.RoomID)
	return updated, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, f domain.Filter) ([]domain.Booking, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("booking deleted", "booking_id", id)
	return nil
}

// validate looks up the room and the user concurrently. A room failure is reported ahead of a
// user failure regardless of which lookup finished first.
func (s *Service) validate(ctx context.Context, req Request, credential string) (directory.User, error) {
	var (
		user             directory.User
		roomErr, userErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		_, roomErr = s.rooms.GetRoom(ctx, req.RoomID, credential)
		return nil
	})
	g.Go(func() error {
		user, userErr = s.users.GetUser(ctx, req.UserID, credential)
		return nil
	})
	_ = g.Wait()

	if roomErr != nil {
		return directory.User{}, domain.ErrRoomValidationFailed.WithCause(roomErr)
	}
	if userErr != nil {
		return directory.User{}, domain.ErrUserValidationFailed.WithCause(userErr)
	}
	if !user.IsActive() {
		return directory.User{}, domain.ErrUserValidationFailed.WithCause(errInactive)
	}
	return user, nil
}
