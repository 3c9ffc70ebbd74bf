package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func scenarioSettings() Settings {
	var weekly WeeklyAvailability
	weekly[time.Monday] = []TimeRange{{Start: 9 * 60, End: 12 * 60}}

	return Settings{
		ProviderID:         "p1",
		BookingPageEnabled: true,
		Location:           time.UTC,
		Weekly:             weekly,
		Catalog: NewCatalog([]AppointmentType{
			{ID: "consult", Name: "Consult", DurationMinutes: 30, BufferAfterMinutes: 15, Enabled: true},
			{ID: "retired", Name: "Retired", DurationMinutes: 30, Enabled: false},
		}),
		Window: WindowPolicy{MinAdvanceMinutes: 0, MaxAdvanceDays: 30, SlotIntervalMinutes: 30},
	}
}

var monday = Date{Year: 2026, Month: time.January, Day: 5}

func clock(d Date, hour, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC)
}

func formatSlots(slots []time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UTC().Format("15:04"))
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListAvailableSlots_EmptyLedger(t *testing.T) {
	s := scenarioSettings()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	slots, err := ListAvailableSlots(s, monday, "consult", nil, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}

	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	if got := formatSlots(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestListAvailableSlots_ExistingBookingBlocksBufferedWindow(t *testing.T) {
	s := scenarioSettings()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	existing := []Booking{{
		ID:                 uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		StartTime:          clock(monday, 9, 30),
		EndTime:            clock(monday, 10, 0),
		BufferAfterMinutes: 15,
		Status:             BookingStatusConfirmed,
	}}

	slots, err := ListAvailableSlots(s, monday, "consult", existing, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	got := formatSlots(slots)

	for _, excluded := range []string{"09:30", "10:00"} {
		for _, g := range got {
			if g == excluded {
				t.Fatalf("slot %s should be excluded, got %v", excluded, got)
			}
		}
	}

	// 09:00 is excluded too: its own 15 minute after-buffer reaches 09:45.
	want := []string{"10:30", "11:00", "11:30"}
	if !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestListAvailableSlots_CancelledBookingsIgnored(t *testing.T) {
	s := scenarioSettings()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	existing := []Booking{{
		StartTime: clock(monday, 9, 0),
		EndTime:   clock(monday, 12, 0),
		Status:    BookingStatusCancelled,
	}}

	slots, err := ListAvailableSlots(s, monday, "consult", existing, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("len(slots) = %d, want 6", len(slots))
	}
}

func TestListAvailableSlots_MinAdvanceBoundary(t *testing.T) {
	s := scenarioSettings()
	s.Window.MinAdvanceMinutes = 120

	t.Run("exactly now plus min advance is included", func(t *testing.T) {
		now := clock(monday, 8, 0)
		slots, err := ListAvailableSlots(s, monday, "consult", nil, now)
		if err != nil {
			t.Fatalf("ListAvailableSlots error: %v", err)
		}
		got := formatSlots(slots)
		if len(got) == 0 || got[0] != "10:00" {
			t.Fatalf("first slot = %v, want 10:00", got)
		}
	})

	t.Run("one minute later excludes the boundary slot", func(t *testing.T) {
		now := clock(monday, 8, 1)
		slots, err := ListAvailableSlots(s, monday, "consult", nil, now)
		if err != nil {
			t.Fatalf("ListAvailableSlots error: %v", err)
		}
		got := formatSlots(slots)
		if len(got) == 0 || got[0] != "10:30" {
			t.Fatalf("first slot = %v, want 10:30", got)
		}
	})
}

func TestListAvailableSlots_FixedGridDoesNotSnap(t *testing.T) {
	s := scenarioSettings()
	s.Catalog = NewCatalog([]AppointmentType{{ID: "long", Name: "Long", DurationMinutes: 45, Enabled: true}})
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	existing := []Booking{{
		StartTime: clock(monday, 9, 0),
		EndTime:   clock(monday, 9, 45),
		Status:    BookingStatusPending,
	}}

	slots, err := ListAvailableSlots(s, monday, "long", existing, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}

	// 09:45 would be free but is not on the 30 minute grid.
	want := []string{"10:00", "10:30", "11:00"}
	if got := formatSlots(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestListAvailableSlots_SlotsStayInsideRanges(t *testing.T) {
	s := scenarioSettings()
	s.Weekly[time.Monday] = []TimeRange{{Start: 9 * 60, End: 10*60 + 10}, {Start: 13 * 60, End: 14 * 60}}
	s.Window.SlotIntervalMinutes = 15
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	slots, err := ListAvailableSlots(s, monday, "consult", nil, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}

	ranges := RangesForDate(s.Weekly, monday, s.Location)
	for _, slot := range slots {
		inside := false
		for _, r := range ranges {
			if !slot.Before(r.Start) && !slot.After(r.End.Add(-30*time.Minute)) {
				inside = true
			}
		}
		if !inside {
			t.Fatalf("slot %s outside every availability range", slot.Format(time.RFC3339))
		}
	}

	want := []string{"09:00", "09:15", "09:30", "13:00", "13:15", "13:30"}
	if got := formatSlots(slots); !equalStrings(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestListAvailableSlots_IsPure(t *testing.T) {
	s := scenarioSettings()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	existing := []Booking{{
		StartTime: clock(monday, 10, 0),
		EndTime:   clock(monday, 10, 30),
		Status:    BookingStatusConfirmed,
	}}

	first, err := ListAvailableSlots(s, monday, "consult", existing, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ListAvailableSlots(s, monday, "consult", existing, now)
		if err != nil {
			t.Fatalf("ListAvailableSlots error: %v", err)
		}
		if !equalStrings(formatSlots(first), formatSlots(again)) {
			t.Fatalf("run %d = %v, want %v", i, formatSlots(again), formatSlots(first))
		}
	}
}

func TestListAvailableSlots_Errors(t *testing.T) {
	s := scenarioSettings()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	if _, err := ListAvailableSlots(s, monday, "missing", nil, now); err != ErrAppointmentTypeNotFound {
		t.Fatalf("err = %v, want %v", err, ErrAppointmentTypeNotFound)
	}
	if _, err := ListAvailableSlots(s, monday, "retired", nil, now); err != ErrAppointmentTypeDisabled {
		t.Fatalf("err = %v, want %v", err, ErrAppointmentTypeDisabled)
	}

	tuesday := monday.AddDays(1)
	slots, err := ListAvailableSlots(s, tuesday, "consult", nil, now)
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0 for a day without availability", len(slots))
	}
}

func TestIsGridStart(t *testing.T) {
	s := scenarioSettings()
	consult, err := s.Catalog.GetType("consult")
	if err != nil {
		t.Fatalf("GetType error: %v", err)
	}

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{name: "range start", start: clock(monday, 9, 0), want: true},
		{name: "grid point", start: clock(monday, 10, 30), want: true},
		{name: "last fitting slot", start: clock(monday, 11, 30), want: true},
		{name: "off grid", start: clock(monday, 9, 15), want: false},
		{name: "crosses range end", start: clock(monday, 12, 0), want: false},
		{name: "before range", start: clock(monday, 8, 30), want: false},
		{name: "day without availability", start: clock(monday.AddDays(1), 9, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGridStart(s, consult, tt.start); got != tt.want {
				t.Fatalf("IsGridStart(%s) = %v, want %v", tt.start.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestOccupancyWindow(t *testing.T) {
	s := scenarioSettings()
	consult, _ := s.Catalog.GetType("consult")

	w, ok := OccupancyWindow(s, monday, consult)
	if !ok {
		t.Fatalf("expected a window for monday")
	}
	if !w.Start.Equal(clock(monday, 9, 0)) || !w.End.Equal(clock(monday, 12, 15)) {
		t.Fatalf("window = [%s, %s), want [09:00, 12:15)", w.Start.Format("15:04"), w.End.Format("15:04"))
	}

	if _, ok := OccupancyWindow(s, monday.AddDays(1), consult); ok {
		t.Fatalf("expected no window for tuesday")
	}
}
