package domain

import "time"

// Buffers pad an appointment on either side; the provider is unavailable for
// other bookings during them.
type Buffers struct {
	Before time.Duration
	After  time.Duration
}

func (b Buffers) Inflate(start, end time.Time) Interval {
	return Interval{Start: start.Add(-b.Before), End: end.Add(b.After)}
}

// HasConflict reports whether the candidate, inflated by its own buffers,
// overlaps any active booking inflated by that booking's stored buffers.
func HasConflict(start, end time.Time, buffers Buffers, existing []Booking) bool {
	candidate := buffers.Inflate(start, end)
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if candidate.Overlaps(b.BlockedInterval()) {
			return true
		}
	}
	return false
}
