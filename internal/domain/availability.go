package domain

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, errors.New("date must be formatted as YYYY-MM-DD")
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf returns the local calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	local := t.In(loc)
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) civil() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Weekday() time.Weekday {
	return d.civil().Weekday()
}

func (d Date) AddDays(n int) Date {
	t := d.civil().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) After(o Date) bool {
	return d.civil().After(o.civil())
}

func (d Date) Before(o Date) bool {
	return d.civil().Before(o.civil())
}

// At resolves a minute-of-day wall-clock time on this date in loc.
func (d Date) At(minuteOfDay int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, minuteOfDay, 0, 0, loc)
}

// Interval is a half-open instant range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Dates lists, in ascending order, every local calendar date the interval
// touches. Two overlapping intervals always share at least one date.
func (i Interval) Dates(loc *time.Location) []Date {
	if !i.Start.Before(i.End) {
		return nil
	}
	first := DateOf(i.Start, loc)
	last := DateOf(i.End.Add(-time.Nanosecond), loc)
	out := []Date{first}
	for d := first; d.Before(last); {
		d = d.AddDays(1)
		out = append(out, d)
	}
	return out
}

// RangesForDate resolves the weekly pattern to absolute UTC intervals for one
// calendar date. A weekday with no configured ranges yields nil.
func RangesForDate(weekly WeeklyAvailability, date Date, loc *time.Location) []Interval {
	ranges := weekly.For(date.Weekday())
	if len(ranges) == 0 {
		return nil
	}
	out := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Interval{
			Start: date.At(r.Start, loc).UTC(),
			End:   date.At(r.End, loc).UTC(),
		})
	}
	return out
}
