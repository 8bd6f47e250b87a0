package infrastructure

import (
	"context"
	"sync"

	"raffler/domain/events"
	"raffler/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// BufferedEventPublisher implements TransactionalEventPublisher: events
// published during a unit of work are buffered and only reach the inner
// publisher on Flush, after the transaction has committed. Discard drops
// them when the transaction rolls back.
type BufferedEventPublisher struct {
	inner   interfaces.EventPublisher
	mu      sync.Mutex
	pending []events.Event
}

// NewBufferedEventPublisher creates a buffered publisher around an inner one
func NewBufferedEventPublisher(inner interfaces.EventPublisher) *BufferedEventPublisher {
	return &BufferedEventPublisher{inner: inner}
}

// Publish buffers the event until Flush
func (p *BufferedEventPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all buffered events to the inner publisher. Publishing is
// best-effort after commit; individual failures are logged, not returned to
// the already-committed caller.
func (p *BufferedEventPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, event := range pending {
		if err := p.inner.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish buffered event")
		}
	}
	return nil
}

// Discard drops all buffered events
func (p *BufferedEventPublisher) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) > 0 {
		log.WithField("count", len(p.pending)).Debug("Discarded buffered events")
	}
	p.pending = nil
}
