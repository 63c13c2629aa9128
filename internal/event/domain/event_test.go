package domain

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
)

func TestCapacityPolicy(t *testing.T) {
	p := NewCapacityPolicy(nil)

	tests := []struct {
		name     string
		role     directory.Role
		expected int
		want     error
	}{
		{"staff at cap", directory.RoleStaff, 400, nil},
		{"staff over cap", directory.RoleStaff, 401, ErrCapacityExceeded},
		{"student at cap", directory.RoleStudent, 50, nil},
		{"student over cap", directory.RoleStudent, 51, ErrCapacityExceeded},
		{"admin at cap", directory.RoleAdmin, 700, nil},
		{"faculty under cap", directory.RoleFaculty, 1, nil},
		{"zero attendees", directory.RoleFaculty, 0, ErrInvalidAttendees},
		{"unknown role", directory.Role("VISITOR"), 10, ErrUnconfiguredRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.role, tt.expected)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Check() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Check() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	if got := apperr.HTTPStatus(ErrCapacityExceeded); got != http.StatusForbidden {
		t.Errorf("CapacityExceeded status = %d", got)
	}
	if got := apperr.HTTPStatus(ErrOwnershipMismatch); got != http.StatusForbidden {
		t.Errorf("OwnershipMismatch status = %d", got)
	}
	if got := apperr.HTTPStatus(ErrUnconfiguredRole); got != http.StatusInternalServerError {
		t.Errorf("UnconfiguredRole status = %d", got)
	}
}

func TestCheckOwnership(t *testing.T) {
	if err := CheckOwnership("u-1", "u-1"); err != nil {
		t.Fatalf("same user: %v", err)
	}
	if err := CheckOwnership("u-1", "u-2"); !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("different user: %v", err)
	}
}
