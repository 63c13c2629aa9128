package domain

import (
	"errors"
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-03-01 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	existing := Booking{StartTime: at("10:00"), EndTime: at("11:00")}

	tests := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"partial overlap", "10:30", "11:30", true},
		{"touching after", "11:00", "12:00", false},
		{"touching before", "09:00", "10:00", false},
		{"contained", "10:15", "10:45", true},
		{"containing", "09:00", "12:00", true},
		{"identical", "10:00", "11:00", true},
		{"disjoint", "13:00", "14:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := existing.Overlaps(at(tt.start), at(tt.end)); got != tt.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	if err := ValidateRange(at("10:00"), at("10:00")); !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("empty range: %v", err)
	}
	if err := ValidateRange(at("11:00"), at("10:00")); !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("reversed range: %v", err)
	}
	if err := ValidateRange(time.Time{}, at("10:00")); !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("zero start: %v", err)
	}
	if err := ValidateRange(at("10:00"), at("10:01")); err != nil {
		t.Errorf("valid range: %v", err)
	}
}
