//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/domain"
	"github.com/dmehra2102/Facility-Booking-System/internal/testenv"
	"github.com/google/uuid"
)

func setup(t *testing.T) *Repository {
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
	return repo
}

func decision(key string) domain.Approval {
	return domain.Approval{
		ID:             uuid.NewString(),
		EventID:        "e-1",
		ApproverID:     "staff-1",
		Status:         domain.StatusApproved,
		ApprovedAt:     time.Now().UTC().Truncate(time.Microsecond),
		IdempotencyKey: key,
	}
}

func TestConcurrentRetriesStoreOneDecision(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, isNew, err := repo.Insert(ctx, decision("retry-1"))
			if err != nil {
				t.Errorf("Insert: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if isNew {
				created++
			}
			ids[stored.ID] = true
		}()
	}
	wg.Wait()

	if created != 1 || len(ids) != 1 {
		t.Fatalf("created=%d distinct ids=%d, want 1 and 1", created, len(ids))
	}
	all, err := repo.ListByEvent(ctx, "e-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("stored %d approvals, want 1", len(all))
	}
}

func TestKeylessDecisionsAlwaysInsert(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, isNew, err := repo.Insert(ctx, decision("")); err != nil || !isNew {
			t.Fatalf("Insert #%d = %v, %v", i, isNew, err)
		}
	}
	all, _ := repo.List(ctx)
	if len(all) != 2 {
		t.Fatalf("stored %d approvals, want 2", len(all))
	}
	if all[0].IdempotencyKey != "" {
		t.Fatalf("key = %q, want empty", all[0].IdempotencyKey)
	}

	if _, err := repo.FindByKey(ctx, "e-1", "staff-1", "missing"); !errors.Is(err, domain.ErrApprovalNotFound) {
		t.Fatalf("FindByKey = %v", err)
	}
}
