package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// Active bookings occupy the provider's calendar.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Transition validates s -> next. Moving to the current status is a no-op and
// reports changed=false.
func (s BookingStatus) Transition(next BookingStatus) (changed bool, err error) {
	if s == next {
		return false, nil
	}
	switch {
	case s == BookingStatusPending && next == BookingStatusConfirmed:
		return true, nil
	case s.Active() && next == BookingStatusCancelled:
		return true, nil
	default:
		return false, ErrInvalidTransition
	}
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID                  uuid.UUID     `bun:"id,pk,type:uuid"`
	ProviderID          string        `bun:"provider_id,notnull"`
	AppointmentTypeID   string        `bun:"appointment_type_id,notnull"`
	StartTime           time.Time     `bun:"start_time,notnull"`
	EndTime             time.Time     `bun:"end_time,notnull"`
	BufferBeforeMinutes int           `bun:"buffer_before_minutes,notnull"`
	BufferAfterMinutes  int           `bun:"buffer_after_minutes,notnull"`
	BlockedStart        time.Time     `bun:"blocked_start,notnull"`
	BlockedEnd          time.Time     `bun:"blocked_end,notnull"`
	Status              BookingStatus `bun:"status,notnull"`
	CustomerName        string        `bun:"customer_name,notnull"`
	CustomerEmail       string        `bun:"customer_email"`
	CustomerPhone       string        `bun:"customer_phone"`
	Notes               string        `bun:"notes"`
	CreatedAt           time.Time     `bun:"created_at,notnull"`
	UpdatedAt           time.Time     `bun:"updated_at,notnull"`
}

// NewBooking builds a pending booking with the type's duration and buffers
// frozen at creation time.
func NewBooking(providerID string, t AppointmentType, start time.Time, c Customer, notes string) Booking {
	start = start.UTC()
	b := Booking{
		ProviderID:          providerID,
		AppointmentTypeID:   t.ID,
		StartTime:           start,
		EndTime:             start.Add(t.Duration()),
		BufferBeforeMinutes: t.BufferBeforeMinutes,
		BufferAfterMinutes:  t.BufferAfterMinutes,
		Status:              BookingStatusPending,
		CustomerName:        c.Name,
		CustomerEmail:       c.Email,
		CustomerPhone:       c.Phone,
		Notes:               notes,
	}
	blocked := b.BlockedInterval()
	b.BlockedStart = blocked.Start
	b.BlockedEnd = blocked.End
	return b
}

func (b Booking) Buffers() Buffers {
	return Buffers{
		Before: time.Duration(b.BufferBeforeMinutes) * time.Minute,
		After:  time.Duration(b.BufferAfterMinutes) * time.Minute,
	}
}

// BlockedInterval is the booking inflated by its own stored buffers.
func (b Booking) BlockedInterval() Interval {
	return b.Buffers().Inflate(b.StartTime, b.EndTime)
}

func (b Booking) Customer() Customer {
	return Customer{Name: b.CustomerName, Email: b.CustomerEmail, Phone: b.CustomerPhone}
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	}
	return nil
}
