package domain

import (
	"fmt"
	"time"
)

type WindowViolationReason string

const (
	WindowTooSoon     WindowViolationReason = "too_soon"
	WindowTooFarAhead WindowViolationReason = "too_far_ahead"
)

type WindowPolicyViolation struct {
	Reason   WindowViolationReason
	Earliest time.Time
	LastDate Date
}

func (e *WindowPolicyViolation) Error() string {
	switch e.Reason {
	case WindowTooSoon:
		return fmt.Sprintf("start time is too soon; earliest bookable start is %s", e.Earliest.Format(time.RFC3339))
	case WindowTooFarAhead:
		return fmt.Sprintf("start time is too far in advance; last bookable date is %s", e.LastDate)
	default:
		return "start time is outside the booking window"
	}
}

type WindowPolicy struct {
	MinAdvanceMinutes   int
	MaxAdvanceDays      int
	SlotIntervalMinutes int
}

func (p WindowPolicy) MinAdvance() time.Duration {
	return time.Duration(p.MinAdvanceMinutes) * time.Minute
}

func (p WindowPolicy) SlotInterval() time.Duration {
	return time.Duration(p.SlotIntervalMinutes) * time.Minute
}

// ValidateStart reports whether candidate may be booked at now. The far edge is
// compared by local calendar date: any start on localDate(now)+MaxAdvanceDays is allowed.
func (p WindowPolicy) ValidateStart(candidate, now time.Time, loc *time.Location) error {
	earliest := now.Add(p.MinAdvance())
	if candidate.Before(earliest) {
		return &WindowPolicyViolation{Reason: WindowTooSoon, Earliest: earliest}
	}

	lastDate := DateOf(now, loc).AddDays(p.MaxAdvanceDays)
	if DateOf(candidate, loc).After(lastDate) {
		return &WindowPolicyViolation{Reason: WindowTooFarAhead, LastDate: lastDate}
	}
	return nil
}
