package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"raffler/domain/events"
	"raffler/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// eventEnvelope wraps domain events on the wire with identity and provenance
type eventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher implements the EventPublisher interface using NATS
type NATSEventPublisher struct {
	natsClient    *NATSClient
	subjectMapper *EventSubjectMapper
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(natsClient *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := eventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "raffler",
		Payload:       payload,
	}
	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := p.subjectMapper.MapEventToSubject(event)
	if err := p.natsClient.Publish(ctx, subject, envelopeData); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	observability.GetMetrics().RecordEventPublished(string(event.Type()))

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureRaffleEventStream ensures the raffle_events stream exists with the
// subjects this service publishes to
func (p *NATSEventPublisher) EnsureRaffleEventStream() error {
	subjects := p.subjectMapper.GetAllSubjects()
	return p.natsClient.ensureStream("raffle_events", subjects, "Raffle domain events")
}
