package appointments

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 24, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"disjoint before", at(9, 0), at(10, 0), at(11, 0), at(12, 0), false},
		{"disjoint after", at(13, 0), at(14, 0), at(11, 0), at(12, 0), false},
		{"back to back", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"partial overlap", at(9, 30), at(10, 30), at(10, 0), at(11, 0), true},
		{"contained", at(10, 15), at(10, 45), at(10, 0), at(11, 0), true},
		{"containing", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConflictsScopedToStaff(t *testing.T) {
	existing := []Appointment{
		{ID: "a1", StaffID: "s1", StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusBooked},
		{ID: "a2", StaffID: "s2", StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusBooked},
		{ID: "a3", StaffID: "s1", StartsAt: at(10, 0), EndsAt: at(11, 0), Status: StatusCancelled},
	}

	got := Conflicts(existing, "s1", at(10, 30), at(11, 30))
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected only a1 to conflict, got %+v", got)
	}

	if got := Conflicts(existing, "s3", at(10, 0), at(11, 0)); len(got) != 0 {
		t.Fatalf("different staff member should be free, got %+v", got)
	}

	if got := Conflicts(existing, "s1", at(11, 0), at(12, 0)); len(got) != 0 {
		t.Fatalf("back-to-back slot should be free, got %+v", got)
	}
}
