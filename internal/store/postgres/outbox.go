package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"slotkeeper/backend/internal/store"
)

type Outbox struct {
	db *bun.DB
}

func NewOutbox(db *bun.DB) *Outbox {
	return &Outbox{db: db}
}

// PublishPending locks up to limit unpublished rows, hands them to fn and
// marks them published in the same transaction. Rows locked by another relay
// are skipped.
func (o *Outbox) PublishPending(ctx context.Context, limit int, fn func(ctx context.Context, records []store.OutboxRecord) error) (int, error) {
	var published int
	err := o.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []outboxRow
		err := tx.NewSelect().
			Model(&rows).
			Where("published_at IS NULL").
			OrderExpr("id ASC").
			Limit(limit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		records := make([]store.OutboxRecord, 0, len(rows))
		ids := make([]int64, 0, len(rows))
		for _, r := range rows {
			records = append(records, store.OutboxRecord{
				ID:            r.ID,
				EventID:       r.EventID,
				AggregateType: r.AggregateType,
				AggregateID:   r.AggregateID,
				EventType:     r.EventType,
				Payload:       r.Payload,
				Traceparent:   r.Traceparent,
				Tracestate:    r.Tracestate,
				CreatedAt:     r.CreatedAt,
			})
			ids = append(ids, r.ID)
		}

		if err := fn(ctx, records); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Table("outbox_events").
			Set("published_at = now()").
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return err
		}
		published = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}
