package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/store"
	"slotkeeper/backend/internal/telemetry"
)

const bookingsNoOverlapConstraint = "bookings_no_overlap"

var activeStatuses = []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed}

type BookingLedger struct {
	db *bun.DB
}

func NewBookingLedger(db *bun.DB) *BookingLedger {
	return &BookingLedger{db: db}
}

type ledgerTx struct {
	tx bun.Tx
}

// outboxRow mirrors outbox_events; event_id and created_at are filled by the database.
type outboxRow struct {
	bun.BaseModel `bun:"table:outbox_events"`

	ID            int64      `bun:"id,pk,autoincrement"`
	EventID       uuid.UUID  `bun:"event_id,type:uuid,nullzero,scanonly"`
	AggregateType string     `bun:"aggregate_type,notnull"`
	AggregateID   string     `bun:"aggregate_id,notnull"`
	EventType     string     `bun:"event_type,notnull"`
	Payload       []byte     `bun:"payload,type:jsonb,notnull"`
	Traceparent   string     `bun:"traceparent,notnull"`
	Tracestate    string     `bun:"tracestate,notnull"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	PublishedAt   *time.Time `bun:"published_at"`
}

func (l *BookingLedger) InCalendarTransaction(ctx context.Context, providerID string, lockDates []domain.Date, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, d := range lockDates {
			if err := lockProviderDate(ctx, tx, providerID, d); err != nil {
				return err
			}
		}
		return fn(ctx, ledgerTx{tx: tx})
	})
}

func (l *BookingLedger) InBookingTransaction(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, ledgerTx{tx: tx})
	})
}

// lockProviderDate takes a transaction-scoped advisory lock on one calendar
// day of one provider. Callers must pass dates in ascending order.
func lockProviderDate(ctx context.Context, tx bun.Tx, providerID string, d domain.Date) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID+"/"+d.String()).Exec(ctx)
	return err
}

func (l *BookingLedger) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := l.db.NewSelect().Model(&b).Where("id = ?", bookingID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (l *BookingLedger) ListActiveBookings(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	return listActive(ctx, l.db, providerID, windowStart, windowEnd)
}

func listActive(ctx context.Context, db bun.IDB, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Where("blocked_start < ?", windowEnd).
		Where("blocked_end > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r ledgerTx) ListActiveBookings(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	return listActive(ctx, r.tx, providerID, windowStart, windowEnd)
}

// InsertBooking stores b. An id collision means a replayed request carrying
// the same idempotency key.
func (r ledgerTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := r.tx.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == bookingsNoOverlapConstraint {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return r.replayedBooking(ctx, b)
	}
	return m, nil
}

func (r ledgerTx) replayedBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	var existing domain.Booking
	err := r.tx.NewSelect().Model(&existing).Where("id = ?", b.ID).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	if !store.SameBookingRequest(existing, b) {
		return domain.Booking{}, store.ErrIdempotencyConflict
	}
	return existing, nil
}

func (r ledgerTx) GetBookingForUpdate(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r ledgerTx) UpdateBookingStatus(ctx context.Context, b domain.Booking, next domain.BookingStatus, at time.Time) (bool, error) {
	res, err := r.tx.NewUpdate().
		Table("bookings").
		Set("status = ?", next).
		Set("updated_at = ?", at).
		Where("id = ?", b.ID).
		Where("updated_at <= ?", at).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r ledgerTx) AppendEvent(ctx context.Context, evt store.OutboxEvent) error {
	traceparent, tracestate := telemetry.TraceContextStrings(ctx)
	row := outboxRow{
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		Traceparent:   traceparent,
		Tracestate:    tracestate,
	}
	_, err := r.tx.NewInsert().Model(&row).Exec(ctx)
	return err
}
