package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OutboxRecord struct {
	ID            int64
	EventID       uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

// Outbox hands out batches of unpublished events. A batch is marked published
// only if fn returns nil; concurrent relays never receive the same record.
type Outbox interface {
	PublishPending(ctx context.Context, limit int, fn func(ctx context.Context, records []OutboxRecord) error) (int, error)
}
