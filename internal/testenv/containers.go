//go:build integration

// Package testenv starts the throwaway infrastructure used by integration tests.
package testenv

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Env struct {
	PG    *postgres.PostgresContainer
	PGURL string
	Pool  *pgxpool.Pool
}

func Setup(ctx context.Context) (*Env, error) {
	startCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pgC, err := postgres.Run(startCtx,
		"postgres:16-alpine",
		postgres.WithDatabase("facility"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(startCtx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, err
	}
	pool, err := pgxpool.New(ctx, pgURL)
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, err
	}

	return &Env{PG: pgC, PGURL: pgURL, Pool: pool}, nil
}

func (e *Env) Teardown(ctx context.Context) {
	e.Pool.Close()
	_ = e.PG.Terminate(ctx)
}
