package poller

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/fjod/go_foodcart/internal/publisher"
	"github.com/segmentio/kafka-go"
)

const consumerGroup = "foodcart-cart-cleaner"

// CartClearer empties a cart only if it is still at the checked out version.
type CartClearer interface {
	ClearIfVersion(ctx context.Context, userID string, version int64) (bool, error)
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller listens for order_created events and empties the checked out cart.
// Checkout clears the cart itself; this catches the cases where that failed.
type Poller struct {
	carts  CartClearer
	reader MessageReader
	log    *slog.Logger
}

func NewPoller(carts CartClearer, log *slog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.OrderEventsTopic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(carts, reader, log)
}

func newPoller(carts CartClearer, reader MessageReader, log *slog.Logger) *Poller {
	return &Poller{carts: carts, reader: reader, log: log.With("component", "cart_cleaner")}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndEmptyCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", "error", err)
	}
}

func (p *Poller) getMessageAndEmptyCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.ErrorContext(ctx, "error reading message", "error", err)
		}
		return
	}

	if eventType(m) != domain.OrderEventCreated {
		return
	}

	var payload domain.OrderEventPayload
	if errUnmarshal := json.Unmarshal(m.Value, &payload); errUnmarshal != nil {
		p.log.ErrorContext(ctx, "error parsing message", "offset", m.Offset, "error", errUnmarshal)
		return
	}
	if payload.UserID == "" {
		p.log.ErrorContext(ctx, "missing user_id", "offset", m.Offset, "order_id", payload.OrderID)
		return
	}

	cleared, errClear := p.carts.ClearIfVersion(ctx, payload.UserID, payload.CartVersion)
	if errClear != nil {
		p.log.ErrorContext(ctx, "failed to clear cart", "user_id", payload.UserID, "order_id", payload.OrderID, "error", errClear)
		return
	}
	if cleared {
		p.log.InfoContext(ctx, "cart cleared from order event", "user_id", payload.UserID, "order_id", payload.OrderID)
	}
}

func eventType(m kafka.Message) domain.OrderEventType {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return domain.OrderEventType(h.Value)
		}
	}
	return ""
}
