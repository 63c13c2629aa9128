package postgres

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"sort"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const exclusionViolation = "23P01"

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

// Insert serialises writers on the room with a transaction-scoped advisory lock, so the overlap
// check and the insert see a stable set of bookings across every ledger replica. The exclusion
// constraint catches anything that bypasses the lock.
func (r *Repository) Insert(ctx context.Context, b domain.Booking, placed outbox.Event) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockRooms(ctx, tx, b.RoomID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, b); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO bookings (id, user_id, room_id, start_time, end_time, purpose, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			b.ID, b.UserID, b.RoomID, b.StartTime, b.EndTime, b.Purpose, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, placed)
	})
}

func (r *Repository) Update(ctx context.Context, b domain.Booking) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var currentRoom string
		err := tx.QueryRow(ctx, `SELECT room_id FROM bookings WHERE id=$1 FOR UPDATE`, b.ID).Scan(&currentRoom)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if err := lockRooms(ctx, tx, currentRoom, b.RoomID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, b); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE bookings SET user_id=$2, room_id=$3, start_time=$4, end_time=$5, purpose=$6, updated_at=$7
			WHERE id=$1`,
			b.ID, b.UserID, b.RoomID, b.StartTime, b.EndTime, b.Purpose, b.UpdatedAt)
		return err
	})
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, user_id, room_id, start_time, end_time, purpose, created_at, updated_at
		FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, room_id, start_time, end_time, purpose, created_at, updated_at
		FROM bookings
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR room_id = $2)
		ORDER BY start_time, id`, f.UserID, f.RoomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return mapError(err)
	}
	return mapError(tx.Commit(ctx))
}

// lockRooms takes advisory locks in a fixed order so two updates moving bookings between the same
// pair of rooms cannot deadlock.
func lockRooms(ctx context.Context, tx pgx.Tx, roomIDs ...string) error {
	sort.Strings(roomIDs)
	prev := ""
	for _, id := range roomIDs {
		if id == prev {
			continue
		}
		prev = id
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id); err != nil {
			return err
		}
	}
	return nil
}

func checkOverlap(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	var clash string
	err := tx.QueryRow(ctx, `SELECT id FROM bookings
		WHERE room_id = $1 AND start_time < $3 AND $2 < end_time AND id <> $4
		LIMIT 1`, b.RoomID, b.StartTime, b.EndTime, b.ID).Scan(&clash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return domain.ErrRoomAlreadyOccupied
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return domain.ErrRoomAlreadyOccupied.WithCause(err)
	}
	return err
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.RoomID, &b.StartTime, &b.EndTime, &b.Purpose, &b.CreatedAt, &b.UpdatedAt)
	b.StartTime, b.EndTime = b.StartTime.UTC(), b.EndTime.UTC()
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b, err
}
