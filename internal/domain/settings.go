package domain

import "time"

const MinutesPerDay = 24 * 60

// TimeRange is a wall-clock range expressed in minutes since local midnight.
// End may be MinutesPerDay to mean the following midnight.
type TimeRange struct {
	Start int
	End   int
}

func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= MinutesPerDay && r.Start < r.End
}

// WeeklyAvailability is indexed by time.Weekday. Ranges for a day are sorted and disjoint.
type WeeklyAvailability [7][]TimeRange

func (w WeeklyAvailability) For(day time.Weekday) []TimeRange {
	return w[day]
}

func (w WeeklyAvailability) IsEmpty() bool {
	for _, ranges := range w {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

type AppointmentType struct {
	ID                  string
	Name                string
	DurationMinutes     int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	Enabled             bool
	Order               int
}

func (t AppointmentType) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

func (t AppointmentType) Buffers() Buffers {
	return Buffers{
		Before: time.Duration(t.BufferBeforeMinutes) * time.Minute,
		After:  time.Duration(t.BufferAfterMinutes) * time.Minute,
	}
}

// Settings is the provider's booking configuration. It is built once at the
// configuration boundary and passed by value into every engine call.
type Settings struct {
	ProviderID         string
	BookingPageEnabled bool
	Location           *time.Location
	Weekly             WeeklyAvailability
	Catalog            Catalog
	Window             WindowPolicy
}
