package interfaces

import (
	"context"
	"time"

	"raffler/domain/events"
)

// RandomnessRequest carries the round-specific parameters of a draw request
type RandomnessRequest struct {
	RequestedAt time.Time
	NumWords    int
	PlayerCount int
	PoolBalance int64
}

// RandomnessSource abstracts the external randomness oracle. RequestRandomWords
// issues a draw request and returns the correlation token the fulfillment will
// carry; the fulfillment itself arrives later through the transport's inbound
// path and cannot be polled for.
type RandomnessSource interface {
	RequestRandomWords(ctx context.Context, req RandomnessRequest) (string, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the enclosing unit of work
// commits, so no event escapes a rolled-back settlement
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all buffered events
	Flush(ctx context.Context) error

	// Discard drops all buffered events
	Discard()
}
