package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/application"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/infrastructure/bookingclient"
	eventhttp "github.com/dmehra2102/Facility-Booking-System/internal/event/infrastructure/http"
	eventmem "github.com/dmehra2102/Facility-Booking-System/internal/event/infrastructure/memory"
	eventpg "github.com/dmehra2102/Facility-Booking-System/internal/event/infrastructure/postgres"
	"github.com/dmehra2102/Facility-Booking-System/internal/platform"
	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/logging"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Facility-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/go-chi/chi/v5"
)

func main() {
	var cfg config.Event
	if err := config.Load(&cfg); err != nil {
		logging.New("event-service", "info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New("event-service", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "event-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var (
		repo  application.EventRepository
		store outbox.Store
	)
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := platform.OpenPostgres(ctx, cfg.PGURL)
		if err != nil {
			log.Error("postgres unavailable", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := eventpg.NewRepository(log, pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		repo, store = pg, outbox.NewPGStore(log, pool)
	default:
		ob := outbox.NewMemoryStore()
		repo, store = eventmem.NewRepository(ob), ob
		log.Warn("using in-memory store, events are lost on restart")
	}

	pub, closePub, err := platform.NewPublisher(log, cfg.Bus)
	if err != nil {
		log.Error("message bus unavailable", "err", err)
		os.Exit(1)
	}
	defer closePub()
	platform.StartRelay(ctx, log, store, pub, "event-service-relay")

	caps := make(map[directory.Role]int, len(cfg.RoleCaps))
	for role, limit := range cfg.RoleCaps {
		caps[directory.ParseRole(role)] = limit
	}
	log.Info("attendee caps", "caps", cfg.RoleCaps)

	bookings := bookingclient.New(log, cfg.BookingURL, platform.PeerOptions(log, "booking-service", cfg.Peers)...)
	users := directory.NewUsers(log, cfg.UserURL, platform.PeerOptions(log, "user-service", cfg.Peers)...)
	svc := application.NewService(log, repo, bookings, users, domain.NewCapacityPolicy(caps))
	handler := eventhttp.NewHandler(log, svc)

	r := chi.NewRouter()
	r.Use(tracing.Middleware("event-service"))
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdown.Serve(ctx, log, srv, cfg.ShutdownWait, cancel)
	log.Info("event-service shutdown complete")
}
