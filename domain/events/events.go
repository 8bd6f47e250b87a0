package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeParticipantEntered EventType = "participant_entered"
	EventTypeDrawRequested      EventType = "draw_requested"
	EventTypeWinnerPicked       EventType = "winner_picked"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ParticipantEnteredEvent is emitted after a paid entry joins the pool
type ParticipantEnteredEvent struct {
	Player      string
	Amount      int64
	PoolBalance int64
	PlayerCount int
}

func (e ParticipantEnteredEvent) Type() EventType {
	return EventTypeParticipantEntered
}

// DrawRequestedEvent is emitted when a randomness request has been accepted
// by the oracle and the raffle has entered the calculating state
type DrawRequestedEvent struct {
	RequestID   string
	PoolBalance int64
	PlayerCount int
}

func (e DrawRequestedEvent) Type() EventType {
	return EventTypeDrawRequested
}

// WinnerPickedEvent is emitted after a settlement has durably completed
type WinnerPickedEvent struct {
	RequestID   string
	Winner      string
	WinnerIndex int
	Payout      int64
	PlayerCount int
	SettledAt   time.Time
}

func (e WinnerPickedEvent) Type() EventType {
	return EventTypeWinnerPicked
}
