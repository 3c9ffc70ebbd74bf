package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/service/booking"
	"slotkeeper/backend/internal/transport/wire"
)

type handler struct {
	svc bookingService
	log *slog.Logger
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type bookingResponse struct {
	Booking wire.Booking `json:"booking"`
}

type appointmentTypesResponse struct {
	AppointmentTypes []wire.AppointmentType `json:"appointment_types"`
}

type createBookingRequest struct {
	AppointmentTypeID string        `json:"appointment_type_id"`
	StartTime         time.Time     `json:"start_time"`
	Customer          wire.Customer `json:"customer"`
	Notes             string        `json:"notes"`
}

func (h *handler) requestLog(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *handler) listAppointmentTypes(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r, "ListAppointmentTypes")
	providerID := chi.URLParam(r, "providerID")

	types, err := h.svc.ListAppointmentTypes(r.Context(), providerID)
	if err != nil {
		writeError(w, r, log, err, slog.String("provider_id", providerID))
		return
	}
	render.JSON(w, r, appointmentTypesResponse{AppointmentTypes: wire.FromAppointmentTypes(types)})
}

func (h *handler) listSlots(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r, "ListAvailableSlots")
	providerID := chi.URLParam(r, "providerID")
	q := r.URL.Query()

	slots, err := h.svc.ListAvailableSlots(r.Context(), booking.ListSlotsInput{
		ProviderID:        providerID,
		Date:              q.Get("date"),
		AppointmentTypeID: q.Get("appointment_type_id"),
	})
	if err != nil {
		writeError(w, r, log, err, slog.String("provider_id", providerID), slog.String("date", q.Get("date")))
		return
	}
	render.JSON(w, r, wire.FromSlots(slots))
}

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r, "CreateBooking")
	providerID := chi.URLParam(r, "providerID")

	var req createBookingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"), slog.Any("err", err))
		respondError(w, r, http.StatusBadRequest, "invalid_argument", "request body must be JSON with an RFC 3339 start_time")
		return
	}

	b, err := h.svc.CreateBooking(r.Context(), booking.CreateInput{
		ProviderID:        providerID,
		AppointmentTypeID: req.AppointmentTypeID,
		StartTime:         req.StartTime,
		Customer:          req.Customer.Domain(),
		Notes:             req.Notes,
		IdempotencyKey:    idempotencyKey(r),
	})
	if err != nil {
		writeError(w, r, log, err, slog.String("provider_id", providerID), slog.Time("start_time", req.StartTime))
		return
	}

	log.Info(
		"booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("provider_id", b.ProviderID),
		slog.Time("start_time", b.StartTime),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, bookingResponse{Booking: wire.FromBooking(b)})
}

func (h *handler) getBooking(w http.ResponseWriter, r *http.Request) {
	h.withBooking(w, r, "GetBooking", h.svc.GetBooking)
}

func (h *handler) confirmBooking(w http.ResponseWriter, r *http.Request) {
	h.withBooking(w, r, "ConfirmBooking", h.svc.ConfirmBooking)
}

func (h *handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	h.withBooking(w, r, "CancelBooking", h.svc.CancelBooking)
}

func (h *handler) withBooking(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error),
) {
	log := h.requestLog(r, op)

	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_booking_id"))
		respondError(w, r, http.StatusBadRequest, "invalid_argument", "booking id must be a UUID")
		return
	}

	b, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, r, log, err, slog.String("booking_id", id.String()))
		return
	}
	render.JSON(w, r, bookingResponse{Booking: wire.FromBooking(b)})
}

func idempotencyKey(r *http.Request) string {
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = r.Header.Get("X-Idempotency-Key")
	}
	return strings.TrimSpace(key)
}

func respondError(w http.ResponseWriter, r *http.Request, code int, kind, msg string) {
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: errorBody{Code: kind, Message: msg}})
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, attrs ...any) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		log.Info("invalid request", append(attrs, slog.String("reason", verr.Error()))...)
		respondError(w, r, http.StatusBadRequest, "invalid_argument", verr.Error())
		return
	}

	var werr *domain.WindowPolicyViolation
	if errors.As(err, &werr) {
		log.Info("booking window violated", append(attrs, slog.String("reason", string(werr.Reason)))...)
		respondError(w, r, http.StatusUnprocessableEntity, string(werr.Reason), werr.Error())
		return
	}

	switch {
	case errors.Is(err, booking.ErrSlotNoLongerAvailable):
		log.Info("slot no longer available", attrs...)
		respondError(w, r, http.StatusConflict, "slot_no_longer_available", "That time was just booked. Pick a different slot.")
	case errors.Is(err, booking.ErrSettingsUnavailable):
		log.Info("provider not bookable", attrs...)
		respondError(w, r, http.StatusNotFound, "booking_unavailable", "Online booking is not available for this provider.")
	case errors.Is(err, booking.ErrNotFound):
		log.Info("booking not found", attrs...)
		respondError(w, r, http.StatusNotFound, "not_found", "booking not found")
	case errors.Is(err, booking.ErrInvalidTransition):
		log.Info("invalid status transition", attrs...)
		respondError(w, r, http.StatusConflict, "invalid_transition", "The booking can no longer change to that status.")
	case errors.Is(err, booking.ErrIdempotencyConflict):
		log.Info("idempotency conflict", attrs...)
		respondError(w, r, http.StatusUnprocessableEntity, "idempotency_conflict", "This request key was already used for a different booking.")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", attrs...)
		respondError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("request failed", append(attrs, slog.Any("err", err))...)
		respondError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
