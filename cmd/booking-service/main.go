package main

import (
	"context"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/application"
	bookinghttp "github.com/dmehra2102/Facility-Booking-System/internal/booking/infrastructure/http"
	bookingmem "github.com/dmehra2102/Facility-Booking-System/internal/booking/infrastructure/memory"
	bookingpg "github.com/dmehra2102/Facility-Booking-System/internal/booking/infrastructure/postgres"
	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/internal/platform"
	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/logging"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Facility-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/go-chi/chi/v5"
)

func main() {
	var cfg config.Booking
	if err := config.Load(&cfg); err != nil {
		logging.New("booking-service", "info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New("booking-service", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "booking-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var (
		repo  application.BookingRepository
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

		pg := bookingpg.NewRepository(log, pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		repo, store = pg, outbox.NewPGStore(log, pool)
	default:
		ob := outbox.NewMemoryStore()
		repo, store = bookingmem.NewRepository(ob), ob
		log.Warn("using in-memory store, bookings are lost on restart")
	}

	pub, closePub, err := platform.NewPublisher(log, cfg.Bus)
	if err != nil {
		log.Error("message bus unavailable", "err", err)
		os.Exit(1)
	}
	defer closePub()
	platform.StartRelay(ctx, log, store, pub, "booking-service-relay")

	rooms := directory.NewRooms(log, cfg.RoomURL, platform.PeerOptions(log, "room-service", cfg.Peers)...)
	users := directory.NewUsers(log, cfg.UserURL, platform.PeerOptions(log, "user-service", cfg.Peers)...)
	svc := application.NewService(log, repo, rooms, users)
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Error("invalid config", "BOOKING_TIME_ZONE", cfg.TimeZone, "err", err)
		os.Exit(1)
	}
	handler := bookinghttp.NewHandler(log, svc, bookinghttp.WithLocation(loc))

	r := chi.NewRouter()
	r.Use(tracing.Middleware("booking-service"))
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdown.Serve(ctx, log, srv, cfg.ShutdownWait, cancel)
	log.Info("booking-service shutdown complete")
}
