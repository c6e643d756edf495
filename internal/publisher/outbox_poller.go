package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fjod/go_foodcart/internal/domain"
	r "github.com/fjod/go_foodcart/internal/repository"
	"github.com/segmentio/kafka-go"
)

// OrderEventsTopic carries every order lifecycle event, keyed by order id.
const OrderEventsTopic = "order-events"

const defaultBatchSize = 100

// OutboxPoller relays order events from the outbox to Kafka. Delivery is at
// least once: an event is marked published only after the write succeeded.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      r.OutboxRepository
	writer    MessageWriter
	log       *slog.Logger
}

func NewOutboxPoller(repo r.OutboxRepository, log *slog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  OrderEventsTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(repo, newBreakerWriter(w, log), log)
}

func newOutboxPoller(repo r.OutboxRepository, writer MessageWriter, log *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		eventTick: time.Second,
		batchSize: defaultBatchSize,
		repo:      repo,
		writer:    writer,
		log:       log.With("component", "outbox_poller"),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch events", "error", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publishToKafka(ctx, event); errPublish != nil {
			p.log.ErrorContext(ctx, "failed to publish event", "event_id", event.ID, "error", errPublish)
			continue
		}

		if errMark := p.repo.MarkEventPublished(ctx, event); errMark != nil {
			p.log.ErrorContext(ctx, "failed to mark event as published", "event_id", event.ID, "error", errMark)
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *domain.OrderEvent) error {
	value, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Payload.OrderID), // per-order ordering
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
