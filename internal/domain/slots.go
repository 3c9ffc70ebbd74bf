package domain

import "time"

// ListAvailableSlots enumerates bookable slot starts for one appointment type on
// one date. Candidates sit on a fixed grid stepped from each range start; a
// candidate rejected by the window policy or by a conflict is skipped and the
// cursor still advances by the slot interval.
//
// The result depends only on its arguments.
func ListAvailableSlots(s Settings, date Date, appointmentTypeID string, existing []Booking, now time.Time) ([]time.Time, error) {
	t, err := s.Catalog.Bookable(appointmentTypeID)
	if err != nil {
		return nil, err
	}

	step := s.Window.SlotInterval()
	if step <= 0 {
		return nil, nil
	}
	duration := t.Duration()
	buffers := t.Buffers()

	var out []time.Time
	for _, r := range RangesForDate(s.Weekly, date, s.Location) {
		for cursor := r.Start; !cursor.Add(duration).After(r.End); cursor = cursor.Add(step) {
			if s.Window.ValidateStart(cursor, now, s.Location) != nil {
				continue
			}
			if HasConflict(cursor, cursor.Add(duration), buffers, existing) {
				continue
			}
			out = append(out, cursor)
		}
	}
	return out, nil
}

// IsGridStart reports whether start is a slot start the generator could emit
// for t on start's local date, ignoring window policy and conflicts.
func IsGridStart(s Settings, t AppointmentType, start time.Time) bool {
	step := s.Window.SlotInterval()
	if step <= 0 {
		return false
	}
	duration := t.Duration()
	for _, r := range RangesForDate(s.Weekly, DateOf(start, s.Location), s.Location) {
		if start.Before(r.Start) || start.Add(duration).After(r.End) {
			continue
		}
		if start.Sub(r.Start)%step == 0 {
			return true
		}
	}
	return false
}

// OccupancyWindow bounds the bookings that can conflict with any candidate of
// type t on date. ok is false when the date has no availability.
func OccupancyWindow(s Settings, date Date, t AppointmentType) (window Interval, ok bool) {
	ranges := RangesForDate(s.Weekly, date, s.Location)
	if len(ranges) == 0 {
		return Interval{}, false
	}
	buffers := t.Buffers()
	return buffers.Inflate(ranges[0].Start, ranges[len(ranges)-1].End), true
}
