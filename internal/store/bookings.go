package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slotkeeper/backend/internal/domain"
)

// OutboxEvent is written in the same transaction as the booking change that
// produced it and relayed to the broker later. The topic equals EventType.
type OutboxEvent struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// LedgerTx is the set of operations available while the provider's
// calendar lock is held.
type LedgerTx interface {
	ListActiveBookings(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	// UpdateBookingStatus applies the change only if no newer write exists and
	// reports whether it did.
	UpdateBookingStatus(ctx context.Context, b domain.Booking, next domain.BookingStatus, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, evt OutboxEvent) error
}

type BookingLedger interface {
	// InCalendarTransaction serializes fn against every other writer touching
	// any of the provider's lockDates.
	InCalendarTransaction(ctx context.Context, providerID string, lockDates []domain.Date, fn func(ctx context.Context, tx LedgerTx) error) error
	// InBookingTransaction runs fn without calendar locks; status changes rely
	// on the booking row lock.
	InBookingTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	ListActiveBookings(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
}

// SameBookingRequest reports whether two bookings were created from the same
// request content, which is what an idempotent replay must match.
func SameBookingRequest(a, b domain.Booking) bool {
	return a.ProviderID == b.ProviderID &&
		a.AppointmentTypeID == b.AppointmentTypeID &&
		a.StartTime.Equal(b.StartTime) &&
		a.Customer() == b.Customer() &&
		a.Notes == b.Notes
}
