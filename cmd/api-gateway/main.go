package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/gateway"
	"github.com/dmehra2102/Facility-Booking-System/pkg/config"
	"github.com/dmehra2102/Facility-Booking-System/pkg/logging"
	"github.com/dmehra2102/Facility-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var cfg config.Gateway
	if err := config.Load(&cfg); err != nil {
		logging.New("api-gateway", "info").Error("config", "err", err)
		os.Exit(1)
	}

	routesFile := pflag.String("routes", cfg.RoutesFile, "YAML route table; the built-in table is used when empty")
	addr := pflag.String("addr", cfg.HTTPAddr, "listen address")
	pflag.Parse()

	log := logging.New("api-gateway", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "api-gateway", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	breakers := gateway.BreakerSettings{
		FailureThreshold: cfg.BreakerThreshold,
		Window:           cfg.BreakerWindow,
		Cooldown:         cfg.BreakerCooldown,
	}
	table := gateway.DefaultTable(gateway.Upstreams{
		Users:     cfg.UserUpstreams,
		Rooms:     cfg.RoomUpstreams,
		Bookings:  cfg.BookingUpstreams,
		Events:    cfg.EventUpstreams,
		Approvals: cfg.ApprovalUpstreams,
	}, breakers)
	if *routesFile != "" {
		if table, err = gateway.LoadTable(*routesFile, breakers); err != nil {
			log.Error("route table", "err", err)
			os.Exit(1)
		}
	}
	for _, rt := range table.Routes {
		log.Info("route", "name", rt.Name, "prefix", rt.Prefix, "upstreams", rt.Upstreams)
	}

	gw, err := gateway.New(log, table, gateway.WithUpstreamTimeout(cfg.UpstreamTimeout))
	if err != nil {
		log.Error("gateway init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:        *addr,
		Handler:     gw.Routes(),
		ReadTimeout: 5 * time.Second,
	}

	shutdown.Serve(ctx, log, srv, cfg.ShutdownWait, cancel)
	log.Info("api-gateway shutdown complete")
}
