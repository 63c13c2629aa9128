//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Facility-Booking-System/internal/testenv"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

func setup(t *testing.T) (*Repository, *testenv.Env) {
	t.Helper()
	ctx := context.Background()
	env, err := testenv.Setup(ctx)
	if err != nil {
		t.Fatalf("testenv: %v", err)
	}
	t.Cleanup(func() { env.Teardown(context.Background()) })

	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), env.Pool)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo, env
}

func booking(id, room string, start time.Time, d time.Duration) domain.Booking {
	now := time.Now().UTC()
	return domain.Booking{ID: id, UserID: "u-1", RoomID: room, StartTime: start, EndTime: start.Add(d), CreatedAt: now, UpdatedAt: now}
}

func placed(t *testing.T, id string) outbox.Event {
	ev, err := outbox.NewPlaced("booking", outbox.TopicBookingPlaced, id, "u-1@campus.example.edu", "")
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestConcurrentInsertsOnOneRoom(t *testing.T) {
	repo, env := setup(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	const n = 20
	var (
		wg        sync.WaitGroup
		ok        atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("b-%02d", i)
			err := repo.Insert(context.Background(), booking(id, "r-1", base.Add(time.Duration(i)*time.Minute), time.Hour), placed(t, id))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrRoomAlreadyOccupied):
				conflicts.Add(1)
			default:
				t.Errorf("insert %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if ok.Load() != 1 || conflicts.Load() != n-1 {
		t.Fatalf("successes=%d conflicts=%d", ok.Load(), conflicts.Load())
	}

	var rows int
	if err := env.Pool.QueryRow(context.Background(), `SELECT count(*) FROM outbox`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("outbox rows = %d, want 1 (rolled-back inserts must not leave events)", rows)
	}
}

func TestExclusionConstraintBackstop(t *testing.T) {
	repo, env := setup(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Insert(ctx, booking("b-1", "r-1", base, time.Hour), placed(t, "b-1")); err != nil {
		t.Fatal(err)
	}
	// Bypass the repository's lock and overlap check.
	_, err := env.Pool.Exec(ctx, `INSERT INTO bookings (id, user_id, room_id, start_time, end_time, created_at, updated_at)
		VALUES ('b-2','u-2','r-1',$1,$2,now(),now())`, base.Add(30*time.Minute), base.Add(90*time.Minute))
	if !errors.Is(mapError(err), domain.ErrRoomAlreadyOccupied) {
		t.Fatalf("raw overlapping insert: err = %v", err)
	}

	// Touching ranges are allowed by the half-open constraint.
	if err := repo.Insert(ctx, booking("b-3", "r-1", base.Add(time.Hour), time.Hour), placed(t, "b-3")); err != nil {
		t.Fatalf("touching insert: %v", err)
	}
}

func TestUpdateExcludesSelf(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	b := booking("b-1", "r-1", base, time.Hour)
	if err := repo.Insert(ctx, b, placed(t, "b-1")); err != nil {
		t.Fatal(err)
	}
	b.StartTime, b.EndTime = base.Add(30*time.Minute), base.Add(90*time.Minute)
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.Update(ctx, booking("missing", "r-1", base, time.Hour)); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}
