// Package wire holds the JSON shapes shared by the gRPC and HTTP transports.
package wire

import (
	"time"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/service/booking"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Customer) Domain() domain.Customer {
	return domain.Customer{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

type Booking struct {
	ID                  string   `json:"id"`
	ProviderID          string   `json:"provider_id"`
	AppointmentTypeID   string   `json:"appointment_type_id"`
	Status              string   `json:"status"`
	StartTime           string   `json:"start_time"`
	EndTime             string   `json:"end_time"`
	BufferBeforeMinutes int      `json:"buffer_before_minutes"`
	BufferAfterMinutes  int      `json:"buffer_after_minutes"`
	Customer            Customer `json:"customer"`
	Notes               string   `json:"notes,omitempty"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

func FromBooking(b domain.Booking) Booking {
	return Booking{
		ID:                  b.ID.String(),
		ProviderID:          b.ProviderID,
		AppointmentTypeID:   b.AppointmentTypeID,
		Status:              string(b.Status),
		StartTime:           b.StartTime.UTC().Format(time.RFC3339),
		EndTime:             b.EndTime.UTC().Format(time.RFC3339),
		BufferBeforeMinutes: b.BufferBeforeMinutes,
		BufferAfterMinutes:  b.BufferAfterMinutes,
		Customer: Customer{
			Name:  b.CustomerName,
			Email: b.CustomerEmail,
			Phone: b.CustomerPhone,
		},
		Notes:     b.Notes,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type AppointmentType struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	DurationMinutes     int    `json:"duration_minutes"`
	BufferBeforeMinutes int    `json:"buffer_before_minutes"`
	BufferAfterMinutes  int    `json:"buffer_after_minutes"`
}

func FromAppointmentTypes(types []domain.AppointmentType) []AppointmentType {
	out := make([]AppointmentType, 0, len(types))
	for _, t := range types {
		out = append(out, AppointmentType{
			ID:                  t.ID,
			Name:                t.Name,
			DurationMinutes:     t.DurationMinutes,
			BufferBeforeMinutes: t.BufferBeforeMinutes,
			BufferAfterMinutes:  t.BufferAfterMinutes,
		})
	}
	return out
}

// Slot is one bookable start. LocalTime is HH:MM in the provider's zone and
// StartTime is RFC 3339 with the provider's offset.
type Slot struct {
	LocalTime string `json:"local_time"`
	StartTime string `json:"start_time"`
}

type SlotList struct {
	Date     string `json:"date"`
	TimeZone string `json:"time_zone"`
	Slots    []Slot `json:"slots"`
}

func FromSlots(s booking.Slots) SlotList {
	out := SlotList{
		Date:  s.Date.String(),
		Slots: make([]Slot, 0, len(s.Starts)),
	}
	if s.Location != nil {
		out.TimeZone = s.Location.String()
	}
	for _, st := range s.Starts {
		out.Slots = append(out.Slots, Slot{
			LocalTime: st.Format("15:04"),
			StartTime: st.Format(time.RFC3339),
		})
	}
	return out
}
