package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

type Repository struct {
	outbox *outbox.MemoryStore

	mu     sync.RWMutex
	events map[string]domain.Event
}

func NewRepository(ob *outbox.MemoryStore) *Repository {
	return &Repository{outbox: ob, events: make(map[string]domain.Event)}
}

func (r *Repository) Insert(_ context.Context, e domain.Event, placed outbox.Event) error {
	r.mu.Lock()
	r.events[e.ID] = e
	r.mu.Unlock()
	if r.outbox != nil {
		r.outbox.Append(placed)
	}
	return nil
}

func (r *Repository) Update(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.ID]; !ok {
		return domain.ErrEventNotFound
	}
	r.events[e.ID] = e
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (r *Repository) List(_ context.Context) ([]domain.Event, error) {
	r.mu.RLock()
	out := make([]domain.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}
