package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/application"
	"github.com/dmehra2102/Facility-Booking-System/internal/approval/infrastructure/eventclient"
	approvalhttp "github.com/dmehra2102/Facility-Booking-System/internal/approval/infrastructure/http"
	approvalmem "github.com/dmehra2102/Facility-Booking-System/internal/approval/infrastructure/memory"
	approvalpg "github.com/dmehra2102/Facility-Booking-System/internal/approval/infrastructure/postgres"
	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/internal/platform"
	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/logging"
	"github.com/dmehra2102/Facility-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/go-chi/chi/v5"
)

func main() {
	var cfg config.Approval
	if err := config.Load(&cfg); err != nil {
		logging.New("approval-service", "info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New("approval-service", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "approval-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var repo application.ApprovalRepository
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := platform.OpenPostgres(ctx, cfg.PGURL)
		if err != nil {
			log.Error("postgres unavailable", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := approvalpg.NewRepository(log, pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		repo = pg
	default:
		repo = approvalmem.NewRepository()
		log.Warn("using in-memory store, approvals are lost on restart")
	}

	events := eventclient.New(log, cfg.EventURL, platform.PeerOptions(log, "event-service", cfg.Peers)...)
	users := directory.NewUsers(log, cfg.UserURL, platform.PeerOptions(log, "user-service", cfg.Peers)...)
	svc := application.NewService(log, repo, events, users)
	handler := approvalhttp.NewHandler(log, svc)

	r := chi.NewRouter()
	r.Use(tracing.Middleware("approval-service"))
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdown.Serve(ctx, log, srv, cfg.ShutdownWait, cancel)
	log.Info("approval-service shutdown complete")
}
