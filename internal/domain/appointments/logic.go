package appointments

import "time"

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back bookings where one ends exactly
// when the other starts do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Conflicts returns the booked appointments for the same staff member that
// overlap the candidate window. Cancelled appointments never conflict.
func Conflicts(existing []Appointment, staffID string, start, end time.Time) []Appointment {
	var out []Appointment
	for _, a := range existing {
		if a.StaffID != staffID || a.Status == StatusCancelled {
			continue
		}
		if Overlaps(start, end, a.StartsAt, a.EndsAt) {
			out = append(out, a)
		}
	}
	return out
}
