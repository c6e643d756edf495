package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// breakerWriter stops hammering the brokers after repeated failures.
// While the breaker is open writes fail fast with gobreaker.ErrOpenState.
type breakerWriter struct {
	next MessageWriter
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func newBreakerWriter(next MessageWriter, log *slog.Logger) *breakerWriter {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-order-events",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &breakerWriter{next: next, cb: cb}
}

func (b *breakerWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.WriteMessages(ctx, msgs...)
	})
	return err
}

func (b *breakerWriter) Close() error {
	return b.next.Close()
}
