package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/notification/application"
	notifyamqp "github.com/dmehra2102/Facility-Booking-System/internal/notification/infrastructure/amqp"
	notifykafka "github.com/dmehra2102/Facility-Booking-System/internal/notification/infrastructure/kafka"
	"github.com/dmehra2102/Facility-Booking-System/internal/notification/infrastructure/mail"
	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/httpx"
	"github.com/dmehra2102/Facility-Booking-System/pkg/idempotency"
	"github.com/dmehra2102/Facility-Booking-System/pkg/logging"
	"github.com/dmehra2102/Facility-Booking-System/pkg/mq"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Facility-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

var topics = []string{outbox.TopicBookingPlaced, outbox.TopicEventPlaced}

func main() {
	var cfg config.Notification
	if err := config.Load(&cfg); err != nil {
		logging.New("notification-service", "info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New("notification-service", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "notification-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable yet", "addr", cfg.RedisAddr, "err", err)
	}

	var sender application.Sender = mail.NewConsoleSender(log)
	if cfg.SMTPAddr != "" {
		sender = mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
		log.Info("sending mail via smtp", "addr", cfg.SMTPAddr)
	}
	svc := application.NewService(log, idempotency.NewStore(rdb, cfg.DedupeTTL), sender)

	var run func(context.Context) error
	switch cfg.Bus.Driver {
	case "kafka":
		reader := notifykafka.NewReader(cfg.KafkaBrokers, cfg.ConsumerGroup, topics)
		run = notifykafka.NewConsumer(log, reader, svc).Run
	case "rabbitmq":
		src, err := mq.NewConsumer(cfg.AMQPURL, cfg.Exchange, cfg.ConsumerGroup, topics)
		if err != nil {
			log.Error("rabbitmq unavailable", "err", err)
			os.Exit(1)
		}
		run = notifyamqp.NewConsumer(log, src, svc, time.Second).Run
	default:
		log.Error("unsupported BUS_DRIVER for the notifier", "driver", cfg.Bus.Driver)
		os.Exit(1)
	}

	go func() {
		if err := run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	r := chi.NewRouter()
	r.Get("/healthz", httpx.Healthz)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadTimeout: 5 * time.Second}

	shutdown.Serve(ctx, log, srv, cfg.ShutdownWait, cancel)
	log.Info("notification-service shutdown complete")
}
