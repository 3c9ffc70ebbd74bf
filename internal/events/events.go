package events

import (
	"encoding/json"
	"time"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/store"
)

const (
	AggregateBooking = "booking"

	TypeBookingCreated       = "booking.created.v1"
	TypeBookingStatusChanged = "booking.status_changed.v1"
)

type BookingCreated struct {
	BookingID           string    `json:"booking_id"`
	ProviderID          string    `json:"provider_id"`
	AppointmentTypeID   string    `json:"appointment_type_id"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	Status              string    `json:"status"`
	CustomerName        string    `json:"customer_name"`
	CustomerEmail       string    `json:"customer_email,omitempty"`
	CustomerPhone       string    `json:"customer_phone,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type BookingStatusChanged struct {
	BookingID  string    `json:"booking_id"`
	ProviderID string    `json:"provider_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	ChangedAt  time.Time `json:"changed_at"`
}

func NewBookingCreated(b domain.Booking) (store.OutboxEvent, error) {
	return encode(b, TypeBookingCreated, BookingCreated{
		BookingID:           b.ID.String(),
		ProviderID:          b.ProviderID,
		AppointmentTypeID:   b.AppointmentTypeID,
		StartTime:           b.StartTime.UTC(),
		EndTime:             b.EndTime.UTC(),
		BufferBeforeMinutes: b.BufferBeforeMinutes,
		BufferAfterMinutes:  b.BufferAfterMinutes,
		Status:              string(b.Status),
		CustomerName:        b.CustomerName,
		CustomerEmail:       b.CustomerEmail,
		CustomerPhone:       b.CustomerPhone,
		Notes:               b.Notes,
		CreatedAt:           b.CreatedAt.UTC(),
	})
}

func NewBookingStatusChanged(b domain.Booking, old domain.BookingStatus, at time.Time) (store.OutboxEvent, error) {
	return encode(b, TypeBookingStatusChanged, BookingStatusChanged{
		BookingID:  b.ID.String(),
		ProviderID: b.ProviderID,
		OldStatus:  string(old),
		NewStatus:  string(b.Status),
		ChangedAt:  at.UTC(),
	})
}

func encode(b domain.Booking, eventType string, payload any) (store.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return store.OutboxEvent{}, err
	}
	return store.OutboxEvent{
		AggregateType: AggregateBooking,
		AggregateID:   b.ID.String(),
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
