package outbox

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps outbox rows in process. Leases are not tracked; a row handed to a relay stays
// in progress until it is marked.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	events     []Event
	maxRetries int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{maxRetries: defaultMaxRetries}
}

func (s *MemoryStore) Append(ev Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.ID = s.nextID
	ev.Status = StatusPending
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	return ev
}

// Events returns a copy of every row, in insertion order.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []Event
	for i := range s.events {
		if len(batch) == batchSize {
			break
		}
		if s.events[i].Status == StatusPending {
			s.events[i].Status = StatusInProgress
			batch = append(batch, s.events[i])
		}
	}
	return batch, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if i := s.index(id); i >= 0 {
			s.events[i].Status = StatusSent
		}
	}
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id int64, errMsg string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil
	}
	ev := &s.events[i]
	ev.RetryCount++
	ev.LastError = &errMsg
	if permanent || ev.RetryCount >= s.maxRetries {
		ev.Status = StatusFailed
	} else {
		ev.Status = StatusPending
	}
	return nil
}

func (s *MemoryStore) index(id int64) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}
