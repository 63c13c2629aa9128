package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/domain"
)

type idemKey struct {
	eventID, approverID, key string
}

type Repository struct {
	mu        sync.RWMutex
	approvals map[string]domain.Approval
	byKey     map[idemKey]string
}

func NewRepository() *Repository {
	return &Repository{
		approvals: make(map[string]domain.Approval),
		byKey:     make(map[idemKey]string),
	}
}

func (r *Repository) Insert(_ context.Context, a domain.Approval) (domain.Approval, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.IdempotencyKey != "" {
		k := idemKey{a.EventID, a.ApproverID, a.IdempotencyKey}
		if id, ok := r.byKey[k]; ok {
			return r.approvals[id], false, nil
		}
		r.byKey[k] = a.ID
	}
	r.approvals[a.ID] = a
	return a, true, nil
}

func (r *Repository) FindByKey(_ context.Context, eventID, approverID, key string) (domain.Approval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[idemKey{eventID, approverID, key}]
	if !ok {
		return domain.Approval{}, domain.ErrApprovalNotFound
	}
	return r.approvals[id], nil
}

func (r *Repository) Update(_ context.Context, a domain.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.approvals[a.ID]; !ok {
		return domain.ErrApprovalNotFound
	}
	r.approvals[a.ID] = a
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.Approval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.approvals[id]
	if !ok {
		return domain.Approval{}, domain.ErrApprovalNotFound
	}
	return a, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Approval, error) {
	return r.ListByEvent(ctx, "")
}

// ListByEvent returns approvals for eventID, or all of them when eventID is empty, oldest first.
func (r *Repository) ListByEvent(_ context.Context, eventID string) ([]domain.Approval, error) {
	r.mu.RLock()
	out := []domain.Approval{}
	for _, a := range r.approvals {
		if eventID == "" || a.EventID == eventID {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovedAt.Before(out[j].ApprovedAt) })
	return out, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok {
		return domain.ErrApprovalNotFound
	}
	if a.IdempotencyKey != "" {
		delete(r.byKey, idemKey{a.EventID, a.ApproverID, a.IdempotencyKey})
	}
	delete(r.approvals, id)
	return nil
}
