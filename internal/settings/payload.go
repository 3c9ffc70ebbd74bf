package settings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"slotkeeper/backend/internal/domain"
)

// ErrUnavailable is returned when a provider's booking page is disabled or its
// settings cannot be turned into a usable configuration.
var ErrUnavailable = errors.New("booking settings unavailable")

// Payload is the provider settings document produced by the settings UI.
// Decoded from JSON (postgres, redis) or through viper (file source).
type Payload struct {
	WeeklyAvailability map[string][]RangePayload `json:"weeklyAvailability" mapstructure:"weeklyAvailability"`
	AppointmentTypes   []AppointmentTypePayload  `json:"appointmentTypes" mapstructure:"appointmentTypes"`
	SlotInterval       int                       `json:"slotIntervalMinutes" mapstructure:"slotIntervalMinutes"`
	MinAdvanceBooking  float64                   `json:"minAdvanceBooking" mapstructure:"minAdvanceBooking"`
	MaxAdvanceBooking  int                       `json:"maxAdvanceBooking" mapstructure:"maxAdvanceBooking"`
	Timezone           string                    `json:"timezone" mapstructure:"timezone"`
	BookingPageEnabled bool                      `json:"bookingPageEnabled" mapstructure:"bookingPageEnabled"`
}

// RangePayload holds wall-clock bounds as "HH:MM". "24:00" is accepted as an end.
type RangePayload struct {
	Start string `json:"start" mapstructure:"start"`
	End   string `json:"end" mapstructure:"end"`
}

type AppointmentTypePayload struct {
	ID                  string `json:"id" mapstructure:"id"`
	Name                string `json:"name" mapstructure:"name"`
	DurationMinutes     int    `json:"durationMinutes" mapstructure:"durationMinutes"`
	BufferBeforeMinutes *int   `json:"bufferBeforeMinutes,omitempty" mapstructure:"bufferBeforeMinutes"`
	BufferAfterMinutes  *int   `json:"bufferAfterMinutes,omitempty" mapstructure:"bufferAfterMinutes"`
	Enabled             bool   `json:"enabled" mapstructure:"enabled"`
	Order               int    `json:"order" mapstructure:"order"`
}

var allowedSlotIntervals = map[int]bool{15: true, 30: true, 60: true}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// Normalize validates p and converts it into the engine's immutable settings
// value. Missing buffers become 0.
func Normalize(providerID string, p Payload) (domain.Settings, error) {
	if !p.BookingPageEnabled {
		return domain.Settings{}, unavailable("booking page is disabled")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(p.Timezone))
	if err != nil || strings.TrimSpace(p.Timezone) == "" {
		return domain.Settings{}, unavailable("invalid timezone %q", p.Timezone)
	}

	if !allowedSlotIntervals[p.SlotInterval] {
		return domain.Settings{}, unavailable("slot interval must be 15, 30 or 60 minutes, got %d", p.SlotInterval)
	}
	if p.MinAdvanceBooking < 0 || p.MaxAdvanceBooking < 0 {
		return domain.Settings{}, unavailable("advance booking limits must not be negative")
	}

	weekly, err := normalizeWeekly(p.WeeklyAvailability)
	if err != nil {
		return domain.Settings{}, err
	}
	if weekly.IsEmpty() {
		return domain.Settings{}, unavailable("no weekly availability configured")
	}

	types, err := normalizeTypes(p.AppointmentTypes)
	if err != nil {
		return domain.Settings{}, err
	}

	return domain.Settings{
		ProviderID:         providerID,
		BookingPageEnabled: true,
		Location:           loc,
		Weekly:             weekly,
		Catalog:            domain.NewCatalog(types),
		Window: domain.WindowPolicy{
			MinAdvanceMinutes:   int(math.Round(p.MinAdvanceBooking * 60)),
			MaxAdvanceDays:      p.MaxAdvanceBooking,
			SlotIntervalMinutes: p.SlotInterval,
		},
	}, nil
}

func normalizeWeekly(in map[string][]RangePayload) (domain.WeeklyAvailability, error) {
	var out domain.WeeklyAvailability
	seen := make(map[time.Weekday]bool, len(in))
	for name, ranges := range in {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return out, unavailable("unknown weekday %q", name)
		}
		// "monday" and "Monday" name the same day.
		if seen[day] {
			return out, unavailable("weekday %s is listed more than once", day)
		}
		seen[day] = true
		parsed := make([]domain.TimeRange, 0, len(ranges))
		for _, r := range ranges {
			start, err := parseClock(r.Start)
			if err != nil {
				return out, unavailable("%s: %v", name, err)
			}
			end, err := parseClock(r.End)
			if err != nil {
				return out, unavailable("%s: %v", name, err)
			}
			tr := domain.TimeRange{Start: start, End: end}
			if !tr.Valid() {
				return out, unavailable("%s: range %s-%s is empty or out of bounds", name, r.Start, r.End)
			}
			parsed = append(parsed, tr)
		}
		for i := 1; i < len(parsed); i++ {
			if parsed[i].Start < parsed[i-1].End {
				return out, unavailable("%s: ranges must be sorted and disjoint", name)
			}
		}
		out[day] = parsed
	}
	return out, nil
}

func normalizeTypes(in []AppointmentTypePayload) ([]domain.AppointmentType, error) {
	seen := make(map[string]bool, len(in))
	out := make([]domain.AppointmentType, 0, len(in))
	for _, t := range in {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return nil, unavailable("appointment type id is required")
		}
		if seen[id] {
			return nil, unavailable("duplicate appointment type %q", id)
		}
		seen[id] = true

		if t.DurationMinutes <= 0 {
			return nil, unavailable("appointment type %q: duration must be positive", id)
		}
		before, after := derefOrZero(t.BufferBeforeMinutes), derefOrZero(t.BufferAfterMinutes)
		if before < 0 || after < 0 {
			return nil, unavailable("appointment type %q: buffers must not be negative", id)
		}

		out = append(out, domain.AppointmentType{
			ID:                  id,
			Name:                strings.TrimSpace(t.Name),
			DurationMinutes:     t.DurationMinutes,
			BufferBeforeMinutes: before,
			BufferAfterMinutes:  after,
			Enabled:             t.Enabled,
			Order:               t.Order,
		})
	}
	return out, nil
}

func derefOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("time %q must be formatted as HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("time %q must be formatted as HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("time %q must be formatted as HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q is out of range", s)
	}
	return h*60 + m, nil
}
