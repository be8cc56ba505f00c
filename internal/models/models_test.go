package models

import (
	"testing"
	"time"
)

func TestEventCovers(t *testing.T) {
	e := &Event{
		StartDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2026, 5, 9, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 5, 11, 15, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 5, 12, 18, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := e.Covers(tt.day); got != tt.want {
			t.Errorf("Covers(%v) = %v; want %v", tt.day, got, tt.want)
		}
	}
}

func TestRoleIsStaff(t *testing.T) {
	for role, want := range map[Role]bool{RoleUser: false, RoleStaff: true, RoleAdmin: true, Role("guest"): false} {
		if got := role.IsStaff(); got != want {
			t.Errorf("%q.IsStaff() = %v; want %v", role, got, want)
		}
	}
}
