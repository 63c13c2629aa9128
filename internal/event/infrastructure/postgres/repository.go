package postgres

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"

	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const selectEvent = `SELECT id, organizer_id, event_name, event_type, booking_id, expected_attendees, created_at, updated_at FROM events`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, outbox.Schema)
	return err
}

func (r *Repository) Insert(ctx context.Context, e domain.Event, placed outbox.Event) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO events (id, organizer_id, event_name, event_type, booking_id, expected_attendees, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.OrganizerID, e.Name, e.Type, e.BookingID, e.ExpectedAttendees, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return err
	}
	if err := outbox.Insert(ctx, tx, placed); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Update(ctx context.Context, e domain.Event) error {
	ct, err := r.pool.Exec(ctx, `UPDATE events SET event_name=$2, event_type=$3, booking_id=$4, expected_attendees=$5, updated_at=$6
		WHERE id=$1`, e.ID, e.Name, e.Type, e.BookingID, e.ExpectedAttendees, e.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, selectEvent+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, err
}

func (r *Repository) List(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, selectEvent+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Name, &e.Type, &e.BookingID, &e.ExpectedAttendees, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
