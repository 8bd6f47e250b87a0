package entities

import (
	"errors"
	"fmt"
	"time"
)

// RaffleState represents the lifecycle state of the raffle round
type RaffleState int

const (
	// RaffleStateOpen accepts entries and allows a new draw to be initiated
	RaffleStateOpen RaffleState = iota
	// RaffleStateCalculating has an outstanding randomness request and accepts
	// nothing but the matching fulfillment
	RaffleStateCalculating
)

func (s RaffleState) String() string {
	switch s {
	case RaffleStateOpen:
		return "open"
	case RaffleStateCalculating:
		return "calculating"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var (
	// ErrEntryBelowFee is returned when an entry payment is below the entrance fee
	ErrEntryBelowFee = errors.New("entry payment below entrance fee")

	// ErrRoundNotOpen is returned when an entry arrives while a draw is in progress
	ErrRoundNotOpen = errors.New("raffle round is not open")

	// ErrNoParticipants is returned when winner selection runs against an empty pool
	ErrNoParticipants = errors.New("no participants in pool")

	// ErrPlayerIndexOutOfRange is returned by PlayerAt for an index past the list end
	ErrPlayerIndexOutOfRange = errors.New("player index out of range")

	// ErrInsufficientFunds is returned by the treasury when a debit would overdraw
	ErrInsufficientFunds = errors.New("insufficient account funds")
)

// DrawNotReadyError is returned when a draw is initiated while the schedule
// gate disagrees. It carries the gate inputs so stale or forged initiation
// attempts can be diagnosed from the error alone.
type DrawNotReadyError struct {
	Balance     int64
	PlayerCount int
	State       RaffleState
}

func (e *DrawNotReadyError) Error() string {
	return fmt.Sprintf("draw not ready: balance=%d players=%d state=%s",
		e.Balance, e.PlayerCount, e.State)
}

// Raffle is the single mutable aggregate for one recurring raffle: state
// machine, entry ledger, pool balance, and round clock. It holds no lock
// itself; the owning service serializes all access.
type Raffle struct {
	EntranceFee      int64
	Interval         time.Duration
	State            RaffleState
	Players          []string
	PoolBalance      int64
	LastSettledAt    time.Time
	RecentWinner     string
	PendingRequestID string
}

// NewRaffle creates a raffle in the open state with an empty ledger.
// The round clock starts at construction time.
func NewRaffle(entranceFee int64, interval time.Duration, now time.Time) *Raffle {
	return &Raffle{
		EntranceFee:   entranceFee,
		Interval:      interval,
		State:         RaffleStateOpen,
		LastSettledAt: now,
	}
}

// PlayerAt returns the participant at the given zero-based position
func (r *Raffle) PlayerAt(index int) (string, error) {
	if index < 0 || index >= len(r.Players) {
		return "", fmt.Errorf("%w: index %d, %d players", ErrPlayerIndexOutOfRange, index, len(r.Players))
	}
	return r.Players[index], nil
}

// PlayerCount returns the number of entries in the current round
func (r *Raffle) PlayerCount() int {
	return len(r.Players)
}

// AddEntry appends a paid entry to the ledger. One entry per payment; the
// same account may hold multiple entries. The full paid amount joins the pool.
func (r *Raffle) AddEntry(player string, amount int64) {
	r.Players = append(r.Players, player)
	r.PoolBalance += amount
}

// BeginDraw transitions the raffle into the calculating state with the given
// outstanding randomness request
func (r *Raffle) BeginDraw(requestID string) {
	r.State = RaffleStateCalculating
	r.PendingRequestID = requestID
}

// AbortDraw reverts a failed draw initiation back to the open state
func (r *Raffle) AbortDraw() {
	r.State = RaffleStateOpen
	r.PendingRequestID = ""
}

// CompleteSettlement records the winner, clears the ledger and pool, restarts
// the round clock, and reopens the raffle. Callers invoke this only after the
// payout has durably succeeded.
func (r *Raffle) CompleteSettlement(winner string, now time.Time) {
	r.RecentWinner = winner
	r.Players = nil
	r.PoolBalance = 0
	r.LastSettledAt = now
	r.PendingRequestID = ""
	r.State = RaffleStateOpen
}

// IsDrawReady decides whether a draw may start. It is a pure function of its
// inputs and is evaluated twice per draw: speculatively by the keeper and
// authoritatively inside InitiateDraw. Both evaluations must agree given
// identical inputs.
func IsDrawReady(now, lastSettled time.Time, interval time.Duration, state RaffleState, balance int64, playerCount int) bool {
	if state != RaffleStateOpen {
		return false
	}
	if now.Sub(lastSettled) < interval {
		return false
	}
	if balance <= 0 {
		return false
	}
	return playerCount > 0
}

// SelectWinnerIndex maps a random word onto an index into the participant
// list via modulo reduction. The slight non-uniformity for pool sizes that do
// not divide 2^64 is the accepted selection policy.
func SelectWinnerIndex(randomWord uint64, playerCount int) (int, error) {
	if playerCount <= 0 {
		return 0, ErrNoParticipants
	}
	return int(randomWord % uint64(playerCount)), nil
}
