// Package platform wires the infrastructure shared by the service binaries: the Postgres pool, the
// message-bus publisher behind the outbox relay and the guarded peer clients.
package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/Facility-Booking-System/pkg/breaker"
	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/mq"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Facility-Booking-System/pkg/peer"
	"github.com/jackc/pgx/v5/pgxpool"
)

func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

// NewPublisher returns the outbox publisher selected by cfg.Driver and a func releasing it.
func NewPublisher(log *slog.Logger, cfg config.Bus) (outbox.Publisher, func(), error) {
	switch cfg.Driver {
	case "kafka":
		w := outbox.NewKafkaWriter(cfg.KafkaBrokers)
		log.Info("publishing to kafka", "brokers", cfg.KafkaBrokers)
		return outbox.NewKafkaPublisher(w), func() { _ = w.Close() }, nil
	case "rabbitmq":
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			return nil, nil, err
		}
		log.Info("publishing to rabbitmq", "exchange", cfg.Exchange)
		return p, func() { _ = p.Close() }, nil
	case "none":
		log.Warn("message bus disabled, notifications are dropped")
		return outbox.NopPublisher{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown BUS_DRIVER %q", cfg.Driver)
	}
}

// StartRelay drains store into pub until ctx is cancelled.
func StartRelay(ctx context.Context, log *slog.Logger, store outbox.Store, pub outbox.Publisher, relayID string) {
	relay := outbox.NewRelay(log, store, outbox.NewDispatcher(log, pub), relayID)
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()
}

// PeerOptions guards the client for one dependency with its own breaker.
func PeerOptions(log *slog.Logger, name string, cfg config.Peers) []peer.Option {
	return peer.Guarded(log, name, cfg.Timeout, breaker.Settings{
		FailureThreshold: cfg.BreakerThreshold,
		Window:           cfg.BreakerWindow,
		Cooldown:         cfg.BreakerCooldown,
	})
}
