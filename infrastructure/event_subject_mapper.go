package infrastructure

import (
	"fmt"

	"raffler/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeParticipantEntered:
		return "raffle.participant.entered"
	case events.EventTypeDrawRequested:
		return "raffle.draw.requested"
	case events.EventTypeWinnerPicked:
		return "raffle.winner.picked"
	default:
		return fmt.Sprintf("raffle.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"raffle.participant.entered",
		"raffle.draw.requested",
		"raffle.winner.picked",
	}
}
