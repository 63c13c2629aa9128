package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/Facility-Booking-System/internal/notification/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Service struct {
	log    *slog.Logger
	dedupe Deduper
	sender Sender
	tracer trace.Tracer
}

func NewService(log *slog.Logger, dedupe Deduper, sender Sender) *Service {
	return &Service{log: log, dedupe: dedupe, sender: sender, tracer: otel.Tracer("notification-service")}
}

// Handle sends the confirmation for one placed message. A redelivery of a message that was already
// sent is a no-op. When sending fails the claim is released and the error returned, so the caller
// leaves the message on the bus and it is tried again.
func (s *Service) Handle(ctx context.Context, topic string, payload []byte) error {
	ctx, span := s.tracer.Start(ctx, "Handle "+topic, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	err := s.handle(ctx, topic, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) handle(ctx context.Context, topic string, payload []byte) error {
	placed, err := domain.Decode(payload)
	if err != nil {
		return err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("entity.id", placed.EntityID))

	email, err := domain.Compose(topic, placed)
	if err != nil {
		return err
	}

	key := s.dedupe.Key(topic, placed.EntityID)
	owned, err := s.dedupe.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("claim %s: %w", key, err)
	}
	if !owned {
		s.log.Info("duplicate message skipped", "topic", topic, "entity_id", placed.EntityID)
		return nil
	}

	if err := s.sender.Send(ctx, email); err != nil {
		if rerr := s.dedupe.Release(ctx, key); rerr != nil {
			s.log.Error("release claim failed", "key", key, "err", rerr)
		}
		return fmt.Errorf("send %s confirmation for %s: %w", topic, placed.EntityID, err)
	}
	s.log.Info("confirmation sent", "topic", topic, "entity_id", placed.EntityID, "to", email.To)
	return nil
}
