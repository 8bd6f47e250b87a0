package repository

import (
	"context"

	"raffler/domain/events"
	"raffler/domain/interfaces"
)

// noopTransactionalPublisher satisfies TransactionalEventPublisher for unit
// of work tests that don't care about events
type noopTransactionalPublisher struct{}

func newNoopTransactionalPublisher() interfaces.TransactionalEventPublisher {
	return &noopTransactionalPublisher{}
}

func (p *noopTransactionalPublisher) Publish(event events.Event) error { return nil }
func (p *noopTransactionalPublisher) Flush(ctx context.Context) error  { return nil }
func (p *noopTransactionalPublisher) Discard()                         {}
