package grpc

import "slotkeeper/backend/internal/transport/wire"

type ListAvailableSlotsRequest struct {
	ProviderID        string `json:"provider_id"`
	Date              string `json:"date"`
	AppointmentTypeID string `json:"appointment_type_id"`
}

type ListAvailableSlotsResponse struct {
	wire.SlotList
}

type CreateBookingRequest struct {
	ProviderID        string        `json:"provider_id"`
	AppointmentTypeID string        `json:"appointment_type_id"`
	StartTime         string        `json:"start_time"`
	Customer          wire.Customer `json:"customer"`
	Notes             string        `json:"notes,omitempty"`
}

type CreateBookingResponse struct {
	Booking wire.Booking `json:"booking"`
}

type ConfirmBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type ConfirmBookingResponse struct {
	Booking wire.Booking `json:"booking"`
}

type CancelBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type CancelBookingResponse struct {
	Booking wire.Booking `json:"booking"`
}

type GetBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type GetBookingResponse struct {
	Booking wire.Booking `json:"booking"`
}

type ListAppointmentTypesRequest struct {
	ProviderID string `json:"provider_id"`
}

type ListAppointmentTypesResponse struct {
	AppointmentTypes []wire.AppointmentType `json:"appointment_types"`
}
