package interfaces

import (
	"context"
	"time"

	"raffler/domain/entities"
)

// UpkeepDiagnostic is the read-only payload returned alongside the draw
// readiness check
type UpkeepDiagnostic struct {
	Balance     int64
	PlayerCount int
	State       entities.RaffleState
}

// EntryReceipt summarizes a successful entry
type EntryReceipt struct {
	Player      string
	Amount      int64
	PoolBalance int64
	PlayerCount int
}

// SettlementResult summarizes a settled round
type SettlementResult struct {
	RequestID   string
	RandomWord  uint64
	Winner      string
	WinnerIndex int
	Payout      int64
	PlayerCount int
	SettledAt   time.Time
}

// RaffleService owns the raffle state machine and sequences entries, draw
// initiation, and settlement. All operations are serialized internally.
type RaffleService interface {
	// Enter accepts a paid entry while the round is open
	Enter(ctx context.Context, player string, amount int64) (*EntryReceipt, error)

	// CheckDrawReady is the speculative, read-only readiness check
	CheckDrawReady(now time.Time) (bool, UpkeepDiagnostic)

	// InitiateDraw re-checks readiness, transitions to calculating, and issues
	// a randomness request. Returns the request correlation token.
	InitiateDraw(ctx context.Context) (string, error)

	// HandleFulfillment consumes the oracle callback for the outstanding
	// request and settles the round
	HandleFulfillment(ctx context.Context, requestID string, randomWords []uint64) (*SettlementResult, error)

	// Read accessors
	EntranceFee() int64
	State() entities.RaffleState
	PoolBalance() int64
	PlayerCount() int
	PlayerAt(index int) (string, error)
	LastSettledAt() time.Time
	RecentWinner() string
}

// FulfillmentHandler is the inbound edge the oracle transport delivers
// fulfillments to. RaffleService satisfies it.
type FulfillmentHandler interface {
	HandleFulfillment(ctx context.Context, requestID string, randomWords []uint64) (*SettlementResult, error)
}
