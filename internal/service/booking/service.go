package booking

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotkeeper/backend/internal/clock"
	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/events"
	"slotkeeper/backend/internal/store"
)

const (
	maxIdempotencyKeyLen = 256
	maxNotesLen          = 2000
)

type SettingsLoader interface {
	Load(ctx context.Context, providerID string) (domain.Settings, error)
}

type Service struct {
	settings SettingsLoader
	ledger   store.BookingLedger
	clock    clock.Clock
}

func NewService(settings SettingsLoader, ledger store.BookingLedger, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Service{settings: settings, ledger: ledger, clock: clk}
}

type ListSlotsInput struct {
	ProviderID        string
	Date              string
	AppointmentTypeID string
}

// Slots holds bookable starts expressed in the provider's zone.
type Slots struct {
	Date     domain.Date
	Location *time.Location
	Starts   []time.Time
}

func (s *Service) ListAvailableSlots(ctx context.Context, in ListSlotsInput) (Slots, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return Slots{}, validationError("provider_id is required")
	}
	typeID := strings.TrimSpace(in.AppointmentTypeID)
	if typeID == "" {
		return Slots{}, validationError("appointment_type_id is required")
	}
	date, err := domain.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return Slots{}, validationError(err.Error())
	}

	cfg, err := s.settings.Load(ctx, providerID)
	if err != nil {
		return Slots{}, err
	}
	typ, err := bookableType(cfg, typeID)
	if err != nil {
		return Slots{}, err
	}

	out := Slots{Date: date, Location: cfg.Location}
	window, ok := domain.OccupancyWindow(cfg, date, typ)
	if !ok {
		return out, nil
	}

	existing, err := s.ledger.ListActiveBookings(ctx, providerID, window.Start, window.End)
	if err != nil {
		return Slots{}, err
	}

	starts, err := domain.ListAvailableSlots(cfg, date, typeID, existing, s.clock.Now())
	if err != nil {
		return Slots{}, err
	}
	out.Starts = make([]time.Time, 0, len(starts))
	for _, st := range starts {
		out.Starts = append(out.Starts, st.In(cfg.Location))
	}
	return out, nil
}

type CreateInput struct {
	ProviderID        string
	AppointmentTypeID string
	StartTime         time.Time
	Customer          domain.Customer
	Notes             string
	IdempotencyKey    string
}

// CreateBooking admits a pending booking for an offered slot. The window
// policy and the conflict check are re-run under the provider's calendar lock
// so a slot listed earlier may come back as ErrSlotNoLongerAvailable.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (domain.Booking, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return domain.Booking{}, validationError("provider_id is required")
	}
	typeID := strings.TrimSpace(in.AppointmentTypeID)
	if typeID == "" {
		return domain.Booking{}, validationError("appointment_type_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Booking{}, validationError("start_time is required")
	}
	customer, err := normalizeCustomer(in.Customer)
	if err != nil {
		return domain.Booking{}, err
	}
	notes := strings.TrimSpace(in.Notes)
	if len(notes) > maxNotesLen {
		return domain.Booking{}, validationError("notes too long")
	}

	cfg, err := s.settings.Load(ctx, providerID)
	if err != nil {
		return domain.Booking{}, err
	}
	typ, err := bookableType(cfg, typeID)
	if err != nil {
		return domain.Booking{}, err
	}
	start := in.StartTime.UTC()
	if !domain.IsGridStart(cfg, typ, start) {
		return domain.Booking{}, validationError("start_time is not an offered slot")
	}

	candidate := domain.NewBooking(providerID, typ, start, customer, notes)

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return domain.Booking{}, validationError("idempotency_key too long")
		}
		candidate.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("slotkeeper:create_booking:"+providerID+":"+key))
	}

	blocked := candidate.BlockedInterval()
	var out domain.Booking
	err = s.ledger.InCalendarTransaction(ctx, providerID, blocked.Dates(cfg.Location), func(ctx context.Context, tx store.LedgerTx) error {
		if candidate.ID != uuid.Nil {
			prior, err := tx.GetBookingForUpdate(ctx, candidate.ID)
			switch {
			case err == nil:
				if !store.SameBookingRequest(prior, candidate) {
					return store.ErrIdempotencyConflict
				}
				out = prior
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		now := s.clock.Now().UTC()
		if err := cfg.Window.ValidateStart(start, now, cfg.Location); err != nil {
			return err
		}

		existing, err := tx.ListActiveBookings(ctx, providerID, blocked.Start, blocked.End)
		if err != nil {
			return err
		}
		if domain.HasConflict(candidate.StartTime, candidate.EndTime, typ.Buffers(), existing) {
			return ErrSlotNoLongerAvailable
		}

		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		created, err := tx.InsertBooking(ctx, candidate)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrSlotNoLongerAvailable
			}
			return err
		}

		evt, err := events.NewBookingCreated(created)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) ConfirmBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, bookingID, domain.BookingStatusConfirmed)
}

func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, bookingID, domain.BookingStatusCancelled)
}

// transition applies the status machine under the booking's row lock.
// Requesting the current status returns the booking unchanged.
func (s *Service) transition(ctx context.Context, bookingID uuid.UUID, next domain.BookingStatus) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}

	var out domain.Booking
	err := s.ledger.InBookingTransaction(ctx, func(ctx context.Context, tx store.LedgerTx) error {
		current, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		changed, err := current.Status.Transition(next)
		if err != nil {
			return err
		}
		if !changed {
			out = current
			return nil
		}

		at := s.clock.Now().UTC()
		applied, err := tx.UpdateBookingStatus(ctx, current, next, at)
		if err != nil {
			return err
		}
		if !applied {
			// A newer write already landed; report what is stored.
			out, err = tx.GetBookingForUpdate(ctx, bookingID)
			return err
		}

		old := current.Status
		current.Status = next
		current.UpdatedAt = at
		evt, err := events.NewBookingStatusChanged(current, old, at)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	return s.ledger.GetBooking(ctx, bookingID)
}

func (s *Service) ListAppointmentTypes(ctx context.Context, providerID string) ([]domain.AppointmentType, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}
	cfg, err := s.settings.Load(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return cfg.Catalog.ListEnabled(), nil
}

func bookableType(cfg domain.Settings, typeID string) (domain.AppointmentType, error) {
	typ, err := cfg.Catalog.Bookable(typeID)
	switch {
	case errors.Is(err, domain.ErrAppointmentTypeNotFound):
		return domain.AppointmentType{}, validationError("unknown appointment type")
	case errors.Is(err, domain.ErrAppointmentTypeDisabled):
		return domain.AppointmentType{}, validationError("appointment type is not bookable")
	case err != nil:
		return domain.AppointmentType{}, err
	}
	return typ, nil
}

func normalizeCustomer(c domain.Customer) (domain.Customer, error) {
	out := domain.Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
	if out.Name == "" {
		return domain.Customer{}, validationError("customer name is required")
	}
	if out.Email != "" {
		if _, err := mail.ParseAddress(out.Email); err != nil {
			return domain.Customer{}, validationError("customer email is invalid")
		}
	}
	return out, nil
}
