package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/service/booking"
)

type bookingService interface {
	ListAvailableSlots(ctx context.Context, in booking.ListSlotsInput) (booking.Slots, error)
	CreateBooking(ctx context.Context, in booking.CreateInput) (domain.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	ListAppointmentTypes(ctx context.Context, providerID string) ([]domain.AppointmentType, error)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type RouterConfig struct {
	RequestTimeout time.Duration
	ReadyChecks    map[string]ReadyCheck

	// WritesPerMinute limits booking writes per client IP. Zero disables it.
	WritesPerMinute int
	WriteBurst      int
}

func NewRouter(svc bookingService, log *slog.Logger, cfg RouterConfig) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	h := &handler{
		svc: svc,
		log: log.With(slog.String("component", "http.booking")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(log, cfg.ReadyChecks))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Get("/providers/{providerID}/appointment-types", h.listAppointmentTypes)
		r.Get("/providers/{providerID}/slots", h.listSlots)
		r.Get("/bookings/{bookingID}", h.getBooking)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(h.log, cfg.WritesPerMinute, cfg.WriteBurst))

			r.Post("/providers/{providerID}/bookings", h.createBooking)
			r.Post("/bookings/{bookingID}/confirm", h.confirmBooking)
			r.Post("/bookings/{bookingID}/cancel", h.cancelBooking)
		})
	})

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "http.access"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug(
				"request finished",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

func readyHandler(log *slog.Logger, checks map[string]ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("readiness check failed", slog.String("check", name), slog.Any("err", err))
				http.Error(w, name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
