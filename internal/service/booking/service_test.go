package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"slotkeeper/backend/internal/clock"
	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/events"
	"slotkeeper/backend/internal/store"
	"slotkeeper/backend/internal/store/memory"
)

type fakeSettings struct {
	loadFn func(ctx context.Context, providerID string) (domain.Settings, error)
}

func (f *fakeSettings) Load(ctx context.Context, providerID string) (domain.Settings, error) {
	if f.loadFn == nil {
		panic("Load not configured")
	}
	return f.loadFn(ctx, providerID)
}

// 2026-01-05 is a Monday.
func monday(h, m int) time.Time {
	return time.Date(2026, 1, 5, h, m, 0, 0, time.UTC)
}

func providerSettings() domain.Settings {
	var weekly domain.WeeklyAvailability
	weekly[time.Monday] = []domain.TimeRange{{Start: 9 * 60, End: 12 * 60}}
	return domain.Settings{
		ProviderID:         "p1",
		BookingPageEnabled: true,
		Location:           time.UTC,
		Weekly:             weekly,
		Catalog: domain.NewCatalog([]domain.AppointmentType{
			{ID: "consult", Name: "Consult", DurationMinutes: 30, BufferAfterMinutes: 15, Enabled: true, Order: 1},
			{ID: "retired", Name: "Retired", DurationMinutes: 30, Enabled: false},
		}),
		Window: domain.WindowPolicy{MinAdvanceMinutes: 60, MaxAdvanceDays: 30, SlotIntervalMinutes: 30},
	}
}

type harness struct {
	svc    *Service
	ledger *memory.Ledger
	clock  *clock.MockClock
}

func newHarness() harness {
	ledger := memory.NewLedger()
	clk := clock.NewMockClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	svc := NewService(&fakeSettings{loadFn: func(ctx context.Context, providerID string) (domain.Settings, error) {
		return providerSettings(), nil
	}}, ledger, clk)
	return harness{svc: svc, ledger: ledger, clock: clk}
}

func (h harness) create(t *testing.T, start time.Time) domain.Booking {
	t.Helper()
	b, err := h.svc.CreateBooking(context.Background(), CreateInput{
		ProviderID:        "p1",
		AppointmentTypeID: "consult",
		StartTime:         start,
		Customer:          domain.Customer{Name: "Ada"},
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	return b
}

func slotClock(starts []time.Time) []string {
	out := make([]string, 0, len(starts))
	for _, s := range starts {
		out = append(out, s.Format("15:04"))
	}
	return out
}

func TestServiceListAvailableSlots(t *testing.T) {
	h := newHarness()

	slots, err := h.svc.ListAvailableSlots(context.Background(), ListSlotsInput{ProviderID: "p1", Date: "2026-01-05", AppointmentTypeID: "consult"})
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	got := slotClock(slots.Starts)
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}

	h.create(t, monday(9, 30))
	slots, err = h.svc.ListAvailableSlots(context.Background(), ListSlotsInput{ProviderID: "p1", Date: "2026-01-05", AppointmentTypeID: "consult"})
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	for _, s := range slotClock(slots.Starts) {
		if s == "09:30" || s == "10:00" {
			t.Fatalf("booked window still offered: %v", slotClock(slots.Starts))
		}
	}
}

func TestServiceListAvailableSlots_Errors(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	tests := []struct {
		name string
		in   ListSlotsInput
	}{
		{name: "missing provider", in: ListSlotsInput{Date: "2026-01-05", AppointmentTypeID: "consult"}},
		{name: "bad date", in: ListSlotsInput{ProviderID: "p1", Date: "05/01/2026", AppointmentTypeID: "consult"}},
		{name: "unknown type", in: ListSlotsInput{ProviderID: "p1", Date: "2026-01-05", AppointmentTypeID: "nope"}},
		{name: "disabled type", in: ListSlotsInput{ProviderID: "p1", Date: "2026-01-05", AppointmentTypeID: "retired"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ListAvailableSlots(ctx, tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
		})
	}

	slots, err := h.svc.ListAvailableSlots(ctx, ListSlotsInput{ProviderID: "p1", Date: "2026-01-06", AppointmentTypeID: "consult"})
	if err != nil {
		t.Fatalf("ListAvailableSlots error: %v", err)
	}
	if len(slots.Starts) != 0 {
		t.Fatalf("tuesday slots = %v, want none", slots.Starts)
	}
}

func TestServiceSettingsUnavailable(t *testing.T) {
	svc := NewService(&fakeSettings{loadFn: func(ctx context.Context, providerID string) (domain.Settings, error) {
		return domain.Settings{}, ErrSettingsUnavailable
	}}, memory.NewLedger(), clock.NewMockClock(monday(0, 0)))

	_, err := svc.ListAvailableSlots(context.Background(), ListSlotsInput{ProviderID: "p1", Date: "2026-01-05", AppointmentTypeID: "consult"})
	if !errors.Is(err, ErrSettingsUnavailable) {
		t.Fatalf("list err = %v, want ErrSettingsUnavailable", err)
	}
	_, err = svc.CreateBooking(context.Background(), CreateInput{ProviderID: "p1", AppointmentTypeID: "consult", StartTime: monday(9, 0), Customer: domain.Customer{Name: "Ada"}})
	if !errors.Is(err, ErrSettingsUnavailable) {
		t.Fatalf("create err = %v, want ErrSettingsUnavailable", err)
	}
}

func TestServiceCreateBooking(t *testing.T) {
	h := newHarness()

	b, err := h.svc.CreateBooking(context.Background(), CreateInput{
		ProviderID:        "p1",
		AppointmentTypeID: "consult",
		StartTime:         monday(10, 0),
		Customer:          domain.Customer{Name: "  Ada  ", Email: "ada@example.com"},
		Notes:             " first visit ",
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if b.ID == uuid.Nil || b.Status != domain.BookingStatusPending {
		t.Fatalf("booking = %+v", b)
	}
	if !b.EndTime.Equal(monday(10, 30)) || b.BufferAfterMinutes != 15 || !b.BlockedEnd.Equal(monday(10, 45)) {
		t.Fatalf("frozen timing wrong: %+v", b)
	}
	if b.CustomerName != "Ada" || b.Notes != "first visit" {
		t.Fatalf("input not trimmed: %q %q", b.CustomerName, b.Notes)
	}
	if !b.CreatedAt.Equal(h.clock.Now()) {
		t.Fatalf("created_at = %s, want clock time", b.CreatedAt)
	}

	outbox := h.ledger.Outbox()
	if len(outbox) != 1 || outbox[0].EventType != events.TypeBookingCreated || outbox[0].AggregateID != b.ID.String() {
		t.Fatalf("outbox = %+v", outbox)
	}

	stored, err := h.svc.GetBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	if stored.ID != b.ID {
		t.Fatalf("stored id = %s", stored.ID)
	}
}

func TestServiceCreateBooking_ValidationErrors(t *testing.T) {
	h := newHarness()
	base := CreateInput{ProviderID: "p1", AppointmentTypeID: "consult", StartTime: monday(9, 0), Customer: domain.Customer{Name: "Ada"}}

	tests := []struct {
		name   string
		mutate func(in *CreateInput)
	}{
		{name: "missing customer name", mutate: func(in *CreateInput) { in.Customer.Name = "   " }},
		{name: "bad email", mutate: func(in *CreateInput) { in.Customer.Email = "not-an-email" }},
		{name: "missing start", mutate: func(in *CreateInput) { in.StartTime = time.Time{} }},
		{name: "unknown type", mutate: func(in *CreateInput) { in.AppointmentTypeID = "nope" }},
		{name: "disabled type", mutate: func(in *CreateInput) { in.AppointmentTypeID = "retired" }},
		{name: "off grid", mutate: func(in *CreateInput) { in.StartTime = monday(9, 15) }},
		{name: "outside availability", mutate: func(in *CreateInput) { in.StartTime = monday(13, 0) }},
		{name: "crosses range end", mutate: func(in *CreateInput) { in.StartTime = monday(12, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := h.svc.CreateBooking(context.Background(), in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
		})
	}

	if len(h.ledger.Outbox()) != 0 {
		t.Fatalf("failed creates left events behind")
	}
}

func TestServiceCreateBooking_WindowPolicy(t *testing.T) {
	h := newHarness()
	h.clock.Set(monday(8, 0))

	// Min advance is 60 minutes: 09:00 is exactly on the boundary.
	h.create(t, monday(9, 0))

	h.clock.Set(monday(8, 31))
	_, err := h.svc.CreateBooking(context.Background(), CreateInput{
		ProviderID: "p1", AppointmentTypeID: "consult", StartTime: monday(9, 30), Customer: domain.Customer{Name: "Bob"},
	})
	var violation *domain.WindowPolicyViolation
	if !errors.As(err, &violation) || violation.Reason != domain.WindowTooSoon {
		t.Fatalf("err = %v, want too_soon violation", err)
	}

	h.clock.Set(time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC))
	_, err = h.svc.CreateBooking(context.Background(), CreateInput{
		ProviderID: "p1", AppointmentTypeID: "consult", StartTime: monday(11, 0), Customer: domain.Customer{Name: "Bob"},
	})
	if !errors.As(err, &violation) || violation.Reason != domain.WindowTooFarAhead {
		t.Fatalf("err = %v, want too_far_ahead violation", err)
	}
}

func TestServiceCreateBooking_ConflictAfterListing(t *testing.T) {
	h := newHarness()
	h.create(t, monday(9, 30))

	// 10:00 was offered before the 09:30 booking; its after-buffer now blocks it.
	_, err := h.svc.CreateBooking(context.Background(), CreateInput{
		ProviderID: "p1", AppointmentTypeID: "consult", StartTime: monday(10, 0), Customer: domain.Customer{Name: "Bob"},
	})
	if !errors.Is(err, ErrSlotNoLongerAvailable) {
		t.Fatalf("err = %v, want ErrSlotNoLongerAvailable", err)
	}

	h.create(t, monday(10, 30))
}

func TestServiceCreateBooking_ConcurrentIdenticalRequests(t *testing.T) {
	h := newHarness()

	var (
		wg      sync.WaitGroup
		ready   = make(chan struct{})
		results = make([]error, 2)
		created = make([]domain.Booking, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-ready
			created[i], results[i] = h.svc.CreateBooking(context.Background(), CreateInput{
				ProviderID:        "p1",
				AppointmentTypeID: "consult",
				StartTime:         monday(10, 0),
				Customer:          domain.Customer{Name: "Customer"},
			})
		}(i)
	}
	close(ready)
	wg.Wait()

	var ok, taken int
	for i, err := range results {
		switch {
		case err == nil:
			ok++
			if created[i].Status != domain.BookingStatusPending {
				t.Fatalf("status = %s, want pending", created[i].Status)
			}
		case errors.Is(err, ErrSlotNoLongerAvailable):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || taken != 1 {
		t.Fatalf("ok=%d taken=%d, want exactly one of each", ok, taken)
	}

	active, _ := h.ledger.ListActiveBookings(context.Background(), "p1", monday(0, 0), monday(23, 0))
	if len(active) != 1 {
		t.Fatalf("active bookings = %d, want 1", len(active))
	}
}

func TestServiceCreateBooking_IdempotencyKey(t *testing.T) {
	h := newHarness()
	in := CreateInput{
		ProviderID:        "p1",
		AppointmentTypeID: "consult",
		StartTime:         monday(11, 0),
		Customer:          domain.Customer{Name: "Ada"},
		IdempotencyKey:    "req-1",
	}

	first, err := h.svc.CreateBooking(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	replay, err := h.svc.CreateBooking(context.Background(), in)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("replay id = %s, want %s", replay.ID, first.ID)
	}
	if n := len(h.ledger.Outbox()); n != 1 {
		t.Fatalf("outbox events = %d, want 1", n)
	}

	in.Notes = "changed"
	if _, err := h.svc.CreateBooking(context.Background(), in); !errors.Is(err, ErrIdempotencyConflict) {
		t.Fatalf("err = %v, want ErrIdempotencyConflict", err)
	}
}

func TestServiceConfirmIsIdempotent(t *testing.T) {
	h := newHarness()
	b := h.create(t, monday(9, 0))

	h.clock.Add(time.Minute)
	first, err := h.svc.ConfirmBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("ConfirmBooking error: %v", err)
	}
	h.clock.Add(time.Minute)
	second, err := h.svc.ConfirmBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("second ConfirmBooking error: %v", err)
	}

	if first.Status != domain.BookingStatusConfirmed || second.Status != domain.BookingStatusConfirmed {
		t.Fatalf("statuses = %s, %s", first.Status, second.Status)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("second confirm touched updated_at")
	}

	outbox := h.ledger.Outbox()
	if len(outbox) != 2 || outbox[1].EventType != events.TypeBookingStatusChanged {
		t.Fatalf("outbox = %+v, want created + one status change", outbox)
	}
}

func TestServiceCancelFreesSlotAndIsTerminal(t *testing.T) {
	h := newHarness()
	b := h.create(t, monday(9, 0))

	h.clock.Add(time.Minute)
	if _, err := h.svc.ConfirmBooking(context.Background(), b.ID); err != nil {
		t.Fatalf("ConfirmBooking error: %v", err)
	}
	h.clock.Add(time.Minute)
	cancelled, err := h.svc.CancelBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("CancelBooking error: %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if _, err := h.svc.CancelBooking(context.Background(), b.ID); err != nil {
		t.Fatalf("repeat cancel error: %v", err)
	}
	if _, err := h.svc.ConfirmBooking(context.Background(), b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirm cancelled err = %v, want ErrInvalidTransition", err)
	}

	h.create(t, monday(9, 0))
}

func TestServiceBookingLookupErrors(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.GetBooking(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBooking err = %v, want ErrNotFound", err)
	}
	if _, err := h.svc.ConfirmBooking(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ConfirmBooking err = %v, want ErrNotFound", err)
	}
	var ve *ValidationError
	if _, err := h.svc.CancelBooking(ctx, uuid.Nil); !errors.As(err, &ve) {
		t.Fatalf("CancelBooking(nil) err = %v, want *ValidationError", err)
	}
}

func TestServiceListAppointmentTypes(t *testing.T) {
	h := newHarness()
	types, err := h.svc.ListAppointmentTypes(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListAppointmentTypes error: %v", err)
	}
	if len(types) != 1 || types[0].ID != "consult" {
		t.Fatalf("types = %+v", types)
	}
}
