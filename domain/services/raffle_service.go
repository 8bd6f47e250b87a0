package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"raffler/domain/entities"
	"raffler/domain/events"
	"raffler/domain/interfaces"
	"raffler/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// raffleService implements business logic for raffle operations. A single
// mutex serializes every operation so no two calls interleave mid-transition;
// the gap between a draw request and its fulfillment is unbounded and spans
// two separate invocations.
type raffleService struct {
	uowFactory  interfaces.UnitOfWorkFactory
	randomness  interfaces.RandomnessSource
	publisher   interfaces.EventPublisher
	poolAccount string

	mu     sync.RWMutex
	raffle *entities.Raffle
	now    func() time.Time
}

// NewRaffleService creates a raffle service with an open round and an empty
// ledger. The round clock starts now.
func NewRaffleService(
	entranceFee int64,
	interval time.Duration,
	poolAccount string,
	uowFactory interfaces.UnitOfWorkFactory,
	randomness interfaces.RandomnessSource,
	publisher interfaces.EventPublisher,
) interfaces.RaffleService {
	nowUTC := func() time.Time { return time.Now().UTC() }
	return &raffleService{
		uowFactory:  uowFactory,
		randomness:  randomness,
		publisher:   publisher,
		poolAccount: poolAccount,
		raffle:      entities.NewRaffle(entranceFee, interval, nowUTC()),
		now:         nowUTC,
	}
}

// Enter accepts a paid entry while the round is open. The payment transfer
// and the ledger append are one unit: a failed transfer leaves the
// participant list and pool balance untouched.
func (s *raffleService) Enter(ctx context.Context, player string, amount int64) (*interfaces.EntryReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Payment is validated before round state: an underpaying entry is
	// reported as such even while a draw is in progress
	if amount < s.raffle.EntranceFee {
		return nil, fmt.Errorf("%w: paid %d, fee is %d", entities.ErrEntryBelowFee, amount, s.raffle.EntranceFee)
	}
	if s.raffle.State != entities.RaffleStateOpen {
		return nil, entities.ErrRoundNotOpen
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.AccountRepository().Transfer(ctx, player, s.poolAccount, amount); err != nil {
		return nil, fmt.Errorf("failed to collect entry payment: %w", err)
	}

	if err := uow.EventBus().Publish(events.ParticipantEnteredEvent{
		Player:      player,
		Amount:      amount,
		PoolBalance: s.raffle.PoolBalance + amount,
		PlayerCount: s.raffle.PlayerCount() + 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish entry event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entry: %w", err)
	}

	s.raffle.AddEntry(player, amount)

	metrics := observability.GetMetrics()
	metrics.RecordEntry()
	metrics.UpdatePoolBalance(amount)

	log.WithFields(log.Fields{
		"player":       player,
		"amount":       amount,
		"pool_balance": s.raffle.PoolBalance,
		"player_count": s.raffle.PlayerCount(),
	}).Info("Raffle entry accepted")

	return &interfaces.EntryReceipt{
		Player:      player,
		Amount:      amount,
		PoolBalance: s.raffle.PoolBalance,
		PlayerCount: s.raffle.PlayerCount(),
	}, nil
}

// CheckDrawReady is the speculative readiness check used by the keeper. It
// mutates nothing and returns the gate inputs as a diagnostic payload.
func (s *raffleService) CheckDrawReady(now time.Time) (bool, interfaces.UpkeepDiagnostic) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ready := entities.IsDrawReady(
		now,
		s.raffle.LastSettledAt,
		s.raffle.Interval,
		s.raffle.State,
		s.raffle.PoolBalance,
		s.raffle.PlayerCount(),
	)
	return ready, interfaces.UpkeepDiagnostic{
		Balance:     s.raffle.PoolBalance,
		PlayerCount: s.raffle.PlayerCount(),
		State:       s.raffle.State,
	}
}

// InitiateDraw authoritatively re-checks the schedule gate, transitions the
// round into the calculating state, and issues the randomness request. A
// rejected request rolls the transition back to open before the error
// propagates, so the raffle never sticks in calculating without an
// outstanding request.
func (s *raffleService) InitiateDraw(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !entities.IsDrawReady(now, s.raffle.LastSettledAt, s.raffle.Interval, s.raffle.State, s.raffle.PoolBalance, s.raffle.PlayerCount()) {
		return "", &entities.DrawNotReadyError{
			Balance:     s.raffle.PoolBalance,
			PlayerCount: s.raffle.PlayerCount(),
			State:       s.raffle.State,
		}
	}

	// Transition before requesting so a concurrent entry cannot slip into the
	// round between the gate check and the request
	s.raffle.BeginDraw("")

	requestID, err := s.randomness.RequestRandomWords(ctx, interfaces.RandomnessRequest{
		RequestedAt: now,
		NumWords:    1,
		PlayerCount: s.raffle.PlayerCount(),
		PoolBalance: s.raffle.PoolBalance,
	})
	if err != nil {
		s.raffle.AbortDraw()
		return "", fmt.Errorf("randomness request rejected: %w", err)
	}
	s.raffle.PendingRequestID = requestID

	if err := s.publisher.Publish(events.DrawRequestedEvent{
		RequestID:   requestID,
		PoolBalance: s.raffle.PoolBalance,
		PlayerCount: s.raffle.PlayerCount(),
	}); err != nil {
		// The request is already outstanding; the event is informational only
		log.WithError(err).Warn("Failed to publish draw requested event")
	}

	log.WithFields(log.Fields{
		"request_id":   requestID,
		"pool_balance": s.raffle.PoolBalance,
		"player_count": s.raffle.PlayerCount(),
	}).Info("Raffle draw initiated")

	return requestID, nil
}

// HandleFulfillment consumes the oracle callback and settles the round. The
// payout transfer, the history record, and the winner event commit as one
// atomic unit; any failure leaves the raffle in the calculating state with
// the ledger intact, awaiting operator remediation. There is no retry here.
func (s *raffleService) HandleFulfillment(ctx context.Context, requestID string, randomWords []uint64) (*interfaces.SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raffle.State != entities.RaffleStateCalculating {
		return nil, fmt.Errorf("unexpected fulfillment %s: round is %s", requestID, s.raffle.State)
	}
	if requestID != s.raffle.PendingRequestID {
		return nil, fmt.Errorf("fulfillment %s does not match outstanding request %s", requestID, s.raffle.PendingRequestID)
	}
	if len(randomWords) == 0 {
		return nil, errors.New("fulfillment carried no random words")
	}

	winnerIndex, err := entities.SelectWinnerIndex(randomWords[0], s.raffle.PlayerCount())
	if err != nil {
		return nil, fmt.Errorf("failed to select winner: %w", err)
	}
	winner, err := s.raffle.PlayerAt(winnerIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve winner: %w", err)
	}

	payout := s.raffle.PoolBalance
	playerCount := s.raffle.PlayerCount()
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.AccountRepository().Transfer(ctx, s.poolAccount, winner, payout); err != nil {
		return nil, fmt.Errorf("failed to pay out pool: %w", err)
	}

	record := &entities.DrawRecord{
		RequestID:   requestID,
		RandomWord:  randomWords[0],
		Winner:      winner,
		WinnerIndex: winnerIndex,
		Payout:      payout,
		PlayerCount: playerCount,
		SettledAt:   now,
	}
	if err := uow.DrawRecordRepository().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record draw: %w", err)
	}

	if err := uow.EventBus().Publish(events.WinnerPickedEvent{
		RequestID:   requestID,
		Winner:      winner,
		WinnerIndex: winnerIndex,
		Payout:      payout,
		PlayerCount: playerCount,
		SettledAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish winner event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.raffle.CompleteSettlement(winner, now)

	metrics := observability.GetMetrics()
	metrics.RecordSettlement()
	metrics.UpdatePoolBalance(-payout)

	log.WithFields(log.Fields{
		"request_id":   requestID,
		"winner":       winner,
		"winner_index": winnerIndex,
		"payout":       payout,
		"player_count": playerCount,
	}).Info("Raffle round settled")

	return &interfaces.SettlementResult{
		RequestID:   requestID,
		RandomWord:  randomWords[0],
		Winner:      winner,
		WinnerIndex: winnerIndex,
		Payout:      payout,
		PlayerCount: playerCount,
		SettledAt:   now,
	}, nil
}

func (s *raffleService) EntranceFee() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.EntranceFee
}

func (s *raffleService) State() entities.RaffleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.State
}

func (s *raffleService) PoolBalance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.PoolBalance
}

func (s *raffleService) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.PlayerCount()
}

func (s *raffleService) PlayerAt(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.PlayerAt(index)
}

func (s *raffleService) LastSettledAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.LastSettledAt
}

func (s *raffleService) RecentWinner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raffle.RecentWinner
}
