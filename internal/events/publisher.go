package events

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"slotkeeper/backend/internal/store"
	"slotkeeper/backend/internal/telemetry"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// Publisher relays outbox rows to Kafka. The topic is the event type and the
// key is the booking id, so events of one booking stay ordered.
type Publisher struct {
	outbox    store.Outbox
	writer    MessageWriter
	log       *slog.Logger
	pollEvery time.Duration
	batchSize int
}

func NewPublisher(outbox store.Outbox, writer MessageWriter, log *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		outbox:    outbox,
		writer:    writer,
		log:       log,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := p.PublishOnce(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				p.log.Error("outbox publish failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				p.log.Debug("outbox batch published", slog.Int("count", n))
			}
		}
	}
}

func (p *Publisher) PublishOnce(ctx context.Context) (int, error) {
	return p.outbox.PublishPending(ctx, p.batchSize, func(ctx context.Context, records []store.OutboxRecord) error {
		msgs := make([]kafka.Message, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, toMessage(ctx, r))
		}
		return p.writer.WriteMessages(ctx, msgs...)
	})
}

func toMessage(ctx context.Context, r store.OutboxRecord) kafka.Message {
	msgCtx := telemetry.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	msg := kafka.Message{
		Topic: r.EventType,
		Key:   []byte(r.AggregateID),
		Value: r.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(r.EventID.String())},
			{Key: "event_type", Value: []byte(r.EventType)},
		},
	}
	msg.Headers = telemetry.InjectKafkaHeaders(msgCtx, msg.Headers)
	return msg
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func ReadyCheck(brokers []string) func(context.Context) error {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return err
		}
		_ = conn.Close()
		return nil
	}
}
