package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

// Repository keeps bookings in process. Each room has its own mutex, held across the overlap check
// and the write, so concurrent creates on one room serialise while other rooms proceed.
type Repository struct {
	outbox *outbox.MemoryStore

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewRepository(ob *outbox.MemoryStore) *Repository {
	return &Repository{
		outbox:   ob,
		locks:    make(map[string]*sync.Mutex),
		bookings: make(map[string]domain.Booking),
	}
}

func (r *Repository) roomLock(roomID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	m, ok := r.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[roomID] = m
	}
	return m
}

// lockRooms takes the locks for every room in ids in a fixed order and returns the unlock func.
func (r *Repository) lockRooms(ids ...string) func() {
	sort.Strings(ids)
	var held []*sync.Mutex
	prev := ""
	for _, id := range ids {
		if id == prev {
			continue
		}
		prev = id
		m := r.roomLock(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (r *Repository) Insert(_ context.Context, b domain.Booking, placed outbox.Event) error {
	unlock := r.lockRooms(b.RoomID)
	defer unlock()

	if r.conflicts(b) {
		return domain.ErrRoomAlreadyOccupied
	}

	r.mu.Lock()
	r.bookings[b.ID] = b
	r.mu.Unlock()

	if r.outbox != nil {
		r.outbox.Append(placed)
	}
	return nil
}

func (r *Repository) Update(_ context.Context, b domain.Booking) error {
	r.mu.RLock()
	current, ok := r.bookings[b.ID]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrBookingNotFound
	}

	unlock := r.lockRooms(current.RoomID, b.RoomID)
	defer unlock()

	r.mu.RLock()
	_, ok = r.bookings[b.ID]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrBookingNotFound
	}
	if r.conflicts(b) {
		return domain.ErrRoomAlreadyOccupied
	}

	r.mu.Lock()
	r.bookings[b.ID] = b
	r.mu.Unlock()
	return nil
}

// conflicts reports whether b overlaps any other booking of its room. Caller holds the room lock.
func (r *Repository) conflicts(b domain.Booking) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, other := range r.bookings {
		if other.ID == b.ID || other.RoomID != b.RoomID {
			continue
		}
		if other.Overlaps(b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

func (r *Repository) Get(_ context.Context, id string) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (r *Repository) List(_ context.Context, f domain.Filter) ([]domain.Booking, error) {
	r.mu.RLock()
	out := make([]domain.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return domain.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}
