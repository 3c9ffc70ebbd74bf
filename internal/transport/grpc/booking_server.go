package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/service/booking"
	"slotkeeper/backend/internal/transport/wire"
)

type BookingServer struct {
	svc bookingService
	log *slog.Logger
}

type bookingService interface {
	ListAvailableSlots(ctx context.Context, in booking.ListSlotsInput) (booking.Slots, error)
	CreateBooking(ctx context.Context, in booking.CreateInput) (domain.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	ListAppointmentTypes(ctx context.Context, providerID string) ([]domain.AppointmentType, error)
}

var _ BookingServiceServer = (*BookingServer)(nil)

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) ListAvailableSlots(ctx context.Context, req *ListAvailableSlotsRequest) (*ListAvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	slots, err := s.svc.ListAvailableSlots(ctx, booking.ListSlotsInput{
		ProviderID:        req.ProviderID,
		Date:              req.Date,
		AppointmentTypeID: req.AppointmentTypeID,
	})
	if err != nil {
		return nil, statusFromError(log, err, slog.String("provider_id", req.ProviderID), slog.String("date", req.Date))
	}

	out := &ListAvailableSlotsResponse{SlotList: wire.FromSlots(slots)}

	log.Debug(
		"slots listed",
		slog.String("provider_id", req.ProviderID),
		slog.String("date", out.Date),
		slog.Int("count", len(out.Slots)),
	)
	return out, nil
}

func (s *BookingServer) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_start_time"), slog.String("provider_id", req.ProviderID))
		return nil, status.Error(codes.InvalidArgument, "start_time must be an RFC 3339 timestamp")
	}

	b, err := s.svc.CreateBooking(ctx, booking.CreateInput{
		ProviderID:        req.ProviderID,
		AppointmentTypeID: req.AppointmentTypeID,
		StartTime:         start,
		Customer:          req.Customer.Domain(),
		Notes:             req.Notes,
		IdempotencyKey:    idempotencyKey(ctx),
	})
	if err != nil {
		return nil, statusFromError(log, err, slog.String("provider_id", req.ProviderID), slog.Time("start_time", start))
	}

	log.Info(
		"booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("provider_id", b.ProviderID),
		slog.String("appointment_type_id", b.AppointmentTypeID),
		slog.Time("start_time", b.StartTime),
	)
	return &CreateBookingResponse{Booking: wire.FromBooking(b)}, nil
}

func (s *BookingServer) ConfirmBooking(ctx context.Context, req *ConfirmBookingRequest) (*ConfirmBookingResponse, error) {
	log := s.log.With(slog.String("rpc", "ConfirmBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	b, err := s.changeStatus(ctx, log, req.BookingID, s.svc.ConfirmBooking)
	if err != nil {
		return nil, err
	}
	return &ConfirmBookingResponse{Booking: wire.FromBooking(b)}, nil
}

func (s *BookingServer) CancelBooking(ctx context.Context, req *CancelBookingRequest) (*CancelBookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	b, err := s.changeStatus(ctx, log, req.BookingID, s.svc.CancelBooking)
	if err != nil {
		return nil, err
	}
	return &CancelBookingResponse{Booking: wire.FromBooking(b)}, nil
}

func (s *BookingServer) changeStatus(
	ctx context.Context,
	log *slog.Logger,
	rawID string,
	apply func(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error),
) (domain.Booking, error) {
	id, err := parseBookingID(log, rawID)
	if err != nil {
		return domain.Booking{}, err
	}

	b, err := apply(ctx, id)
	if err != nil {
		return domain.Booking{}, statusFromError(log, err, slog.String("booking_id", id.String()))
	}

	log.Info("booking status set", slog.String("booking_id", id.String()), slog.String("status", string(b.Status)))
	return b, nil
}

func (s *BookingServer) GetBooking(ctx context.Context, req *GetBookingRequest) (*GetBookingResponse, error) {
	log := s.log.With(slog.String("rpc", "GetBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.svc.GetBooking(ctx, id)
	if err != nil {
		return nil, statusFromError(log, err, slog.String("booking_id", id.String()))
	}
	return &GetBookingResponse{Booking: wire.FromBooking(b)}, nil
}

func (s *BookingServer) ListAppointmentTypes(ctx context.Context, req *ListAppointmentTypesRequest) (*ListAppointmentTypesResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointmentTypes"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	types, err := s.svc.ListAppointmentTypes(ctx, req.ProviderID)
	if err != nil {
		return nil, statusFromError(log, err, slog.String("provider_id", req.ProviderID))
	}

	out := &ListAppointmentTypesResponse{AppointmentTypes: wire.FromAppointmentTypes(types)}
	return out, nil
}

func parseBookingID(log *slog.Logger, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_booking_id"))
		return uuid.Nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}
	return id, nil
}

// statusFromError maps service errors onto gRPC codes. Anything unrecognised
// is logged and reported as Internal without leaking the cause.
func statusFromError(log *slog.Logger, err error, attrs ...any) error {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		log.Info("invalid request", append(attrs, slog.String("reason", verr.Error()))...)
		return status.Error(codes.InvalidArgument, verr.Error())
	}

	var werr *domain.WindowPolicyViolation
	if errors.As(err, &werr) {
		log.Info("booking window violated", append(attrs, slog.String("reason", string(werr.Reason)))...)
		return status.Error(codes.FailedPrecondition, werr.Error())
	}

	switch {
	case errors.Is(err, booking.ErrSlotNoLongerAvailable):
		log.Info("slot no longer available", attrs...)
		return status.Error(codes.Aborted, "That time was just booked. Pick a different slot.")
	case errors.Is(err, booking.ErrSettingsUnavailable):
		log.Info("provider not bookable", attrs...)
		return status.Error(codes.FailedPrecondition, "Online booking is not available for this provider.")
	case errors.Is(err, booking.ErrNotFound):
		log.Info("booking not found", attrs...)
		return status.Error(codes.NotFound, "booking not found")
	case errors.Is(err, booking.ErrInvalidTransition):
		log.Info("invalid status transition", attrs...)
		return status.Error(codes.FailedPrecondition, "The booking can no longer change to that status.")
	case errors.Is(err, booking.ErrIdempotencyConflict):
		log.Info("idempotency conflict", attrs...)
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different booking. Try again.")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", attrs...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	}

	log.Error("request failed", append(attrs, slog.Any("err", err))...)
	return status.Error(codes.Internal, "internal error")
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
