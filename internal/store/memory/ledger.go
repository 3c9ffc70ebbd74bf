package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/store"
)

// Ledger is an in-process BookingLedger. Calendar transactions for the same
// provider are serialized by a per-provider mutex; changes made inside a
// transaction become visible only when fn returns nil.
type Ledger struct {
	mu        sync.RWMutex
	bookings  map[uuid.UUID]domain.Booking
	outbox    []store.OutboxRecord
	published int
	nextID    int64

	relayMu sync.Mutex

	calendarsMu sync.Mutex
	calendars   map[string]*sync.Mutex

	rowsMu sync.Mutex
}

func NewLedger() *Ledger {
	return &Ledger{
		bookings:  make(map[uuid.UUID]domain.Booking),
		calendars: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) calendarLock(providerID string) *sync.Mutex {
	l.calendarsMu.Lock()
	defer l.calendarsMu.Unlock()
	m, ok := l.calendars[providerID]
	if !ok {
		m = &sync.Mutex{}
		l.calendars[providerID] = m
	}
	return m
}

// InCalendarTransaction holds the provider's lock for the whole of fn, so the
// dates are only informative here.
func (l *Ledger) InCalendarTransaction(ctx context.Context, providerID string, _ []domain.Date, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	m := l.calendarLock(providerID)
	m.Lock()
	defer m.Unlock()
	return l.run(ctx, fn)
}

func (l *Ledger) InBookingTransaction(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	l.rowsMu.Lock()
	defer l.rowsMu.Unlock()
	return l.run(ctx, fn)
}

func (l *Ledger) run(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &ledgerTx{l: l, staged: make(map[uuid.UUID]domain.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (l *Ledger) GetBooking(_ context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (l *Ledger) ListActiveBookings(_ context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filterActive(l.bookings, nil, providerID, windowStart, windowEnd), nil
}

// Outbox returns a copy of every event appended so far, published or not.
func (l *Ledger) Outbox() []store.OutboxRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]store.OutboxRecord, len(l.outbox))
	copy(out, l.outbox)
	return out
}

// PublishPending hands unpublished events to fn in append order.
func (l *Ledger) PublishPending(ctx context.Context, limit int, fn func(ctx context.Context, records []store.OutboxRecord) error) (int, error) {
	l.relayMu.Lock()
	defer l.relayMu.Unlock()

	l.mu.RLock()
	end := len(l.outbox)
	if limit > 0 && end-l.published > limit {
		end = l.published + limit
	}
	batch := make([]store.OutboxRecord, end-l.published)
	copy(batch, l.outbox[l.published:end])
	l.mu.RUnlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.published = end
	l.mu.Unlock()
	return len(batch), nil
}

func filterActive(committed, staged map[uuid.UUID]domain.Booking, providerID string, windowStart, windowEnd time.Time) []domain.Booking {
	window := domain.Interval{Start: windowStart, End: windowEnd}
	var out []domain.Booking
	visit := func(b domain.Booking) {
		if b.ProviderID != providerID || !b.Status.Active() {
			return
		}
		if b.BlockedInterval().Overlaps(window) {
			out = append(out, b)
		}
	}
	for id, b := range committed {
		if s, ok := staged[id]; ok {
			b = s
		}
		visit(b)
	}
	for id, b := range staged {
		if _, ok := committed[id]; !ok {
			visit(b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

type ledgerTx struct {
	l      *Ledger
	staged map[uuid.UUID]domain.Booking
	events []store.OutboxEvent
}

func (t *ledgerTx) lookup(id uuid.UUID) (domain.Booking, bool) {
	if b, ok := t.staged[id]; ok {
		return b, true
	}
	t.l.mu.RLock()
	defer t.l.mu.RUnlock()
	b, ok := t.l.bookings[id]
	return b, ok
}

func (t *ledgerTx) ListActiveBookings(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.l.mu.RLock()
	defer t.l.mu.RUnlock()
	return filterActive(t.l.bookings, t.staged, providerID, windowStart, windowEnd), nil
}

func (t *ledgerTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.ID != uuid.Nil {
		if existing, ok := t.lookup(b.ID); ok {
			if !store.SameBookingRequest(existing, b) {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		}
	}

	// Same guarantee as the exclusion constraint on the postgres table.
	if b.Status.Active() {
		blocked := b.BlockedInterval()
		overlapping, err := t.ListActiveBookings(ctx, b.ProviderID, blocked.Start, blocked.End)
		if err != nil {
			return domain.Booking{}, err
		}
		if len(overlapping) > 0 {
			return domain.Booking{}, store.ErrConflict
		}
	}

	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, err
		}
		b.ID = id
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	t.staged[b.ID] = b
	return b, nil
}

func (t *ledgerTx) GetBookingForUpdate(_ context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	b, ok := t.lookup(bookingID)
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (t *ledgerTx) UpdateBookingStatus(_ context.Context, b domain.Booking, next domain.BookingStatus, at time.Time) (bool, error) {
	current, ok := t.lookup(b.ID)
	if !ok {
		return false, store.ErrNotFound
	}
	if current.UpdatedAt.After(at) {
		return false, nil
	}
	current.Status = next
	current.UpdatedAt = at
	t.staged[current.ID] = current
	return true, nil
}

func (t *ledgerTx) AppendEvent(_ context.Context, evt store.OutboxEvent) error {
	t.events = append(t.events, evt)
	return nil
}

func (t *ledgerTx) commit() error {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	for id, b := range t.staged {
		t.l.bookings[id] = b
	}
	now := time.Now().UTC()
	for _, evt := range t.events {
		t.l.nextID++
		t.l.outbox = append(t.l.outbox, store.OutboxRecord{
			ID:            t.l.nextID,
			EventID:       uuid.New(),
			AggregateType: evt.AggregateType,
			AggregateID:   evt.AggregateID,
			EventType:     evt.EventType,
			Payload:       evt.Payload,
			CreatedAt:     now,
		})
	}
	return nil
}
