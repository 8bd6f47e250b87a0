package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"raffler/domain/entities"
	"raffler/domain/events"
	"raffler/domain/interfaces"
	"raffler/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPoolAccount = "raffle:pool"

type raffleFixture struct {
	service    *raffleService
	accounts   *testhelpers.MockAccountRepository
	draws      *testhelpers.MockDrawRecordRepository
	randomness *testhelpers.MockRandomnessSource
	bus        *testhelpers.RecordingEventPublisher
	uow        *testhelpers.FakeUnitOfWork
	start      time.Time
}

// newRaffleFixture builds a service with a controllable clock starting at a
// fixed instant
func newRaffleFixture(t *testing.T, fee int64, interval time.Duration) *raffleFixture {
	t.Helper()

	accounts := new(testhelpers.MockAccountRepository)
	draws := new(testhelpers.MockDrawRecordRepository)
	randomness := new(testhelpers.MockRandomnessSource)
	bus := &testhelpers.RecordingEventPublisher{}
	uow := &testhelpers.FakeUnitOfWork{Accounts: accounts, Draws: draws, Bus: bus}

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewRaffleService(fee, interval, testPoolAccount,
		&testhelpers.FakeUnitOfWorkFactory{UoW: uow}, randomness, bus).(*raffleService)
	svc.now = func() time.Time { return start }
	svc.raffle.LastSettledAt = start

	return &raffleFixture{
		service:    svc,
		accounts:   accounts,
		draws:      draws,
		randomness: randomness,
		bus:        bus,
		uow:        uow,
		start:      start,
	}
}

func (f *raffleFixture) advanceClock(d time.Duration) {
	at := f.start.Add(d)
	f.service.now = func() time.Time { return at }
}

func TestRaffleService_Enter(t *testing.T) {
	t.Parallel()

	t.Run("successful entry appends player and funds pool", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 100, time.Minute)
		f.accounts.On("Transfer", mock.Anything, "alice", testPoolAccount, int64(100)).Return(nil)

		receipt, err := f.service.Enter(context.Background(), "alice", 100)
		require.NoError(t, err)

		assert.Equal(t, "alice", receipt.Player)
		assert.Equal(t, int64(100), receipt.PoolBalance)
		assert.Equal(t, 1, receipt.PlayerCount)
		assert.Equal(t, 1, f.service.PlayerCount())
		assert.Equal(t, int64(100), f.service.PoolBalance())
		assert.Equal(t, 1, f.uow.Committed)

		require.Len(t, f.bus.Events, 1)
		entered, ok := f.bus.Events[0].(events.ParticipantEnteredEvent)
		require.True(t, ok)
		assert.Equal(t, "alice", entered.Player)
		f.accounts.AssertExpectations(t)
	})

	t.Run("payment below fee rejected without mutation", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 100, time.Minute)

		_, err := f.service.Enter(context.Background(), "alice", 99)
		assert.ErrorIs(t, err, entities.ErrEntryBelowFee)
		assert.Zero(t, f.service.PlayerCount())
		assert.Zero(t, f.service.PoolBalance())
		assert.Zero(t, f.uow.Began)
		f.accounts.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("entry while calculating rejected", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 1, time.Minute)
		f.service.raffle.AddEntry("alice", 1)
		f.service.raffle.BeginDraw("req-1")

		_, err := f.service.Enter(context.Background(), "bob", 1)
		assert.ErrorIs(t, err, entities.ErrRoundNotOpen)
		assert.Equal(t, 1, f.service.PlayerCount())
		assert.Equal(t, int64(1), f.service.PoolBalance())
	})

	t.Run("underpayment while calculating reports fee error", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 100, time.Minute)
		f.service.raffle.AddEntry("alice", 100)
		f.service.raffle.BeginDraw("req-1")

		// Both rejections apply; the fee violation wins
		_, err := f.service.Enter(context.Background(), "bob", 99)
		assert.ErrorIs(t, err, entities.ErrEntryBelowFee)
	})

	t.Run("failed payment transfer leaves ledger untouched", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 100, time.Minute)
		f.accounts.On("Transfer", mock.Anything, "alice", testPoolAccount, int64(100)).
			Return(entities.ErrInsufficientFunds)

		_, err := f.service.Enter(context.Background(), "alice", 100)
		assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
		assert.Zero(t, f.service.PlayerCount())
		assert.Zero(t, f.service.PoolBalance())
		assert.Zero(t, f.uow.Committed)
		assert.Equal(t, 1, f.uow.RolledBack)
		assert.Empty(t, f.bus.Events)
	})

	t.Run("overpayment accepted in full", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 100, time.Minute)
		f.accounts.On("Transfer", mock.Anything, "alice", testPoolAccount, int64(150)).Return(nil)

		receipt, err := f.service.Enter(context.Background(), "alice", 150)
		require.NoError(t, err)
		assert.Equal(t, int64(150), receipt.PoolBalance)
	})
}

func TestRaffleService_CheckDrawReady(t *testing.T) {
	t.Parallel()

	f := newRaffleFixture(t, 1, 100*time.Second)
	f.accounts.On("Transfer", mock.Anything, mock.Anything, testPoolAccount, int64(1)).Return(nil)

	for _, player := range []string{"alice", "bob", "carol"} {
		_, err := f.service.Enter(context.Background(), player, 1)
		require.NoError(t, err)
	}

	ready, diag := f.service.CheckDrawReady(f.start.Add(50 * time.Second))
	assert.False(t, ready)
	assert.Equal(t, int64(3), diag.Balance)
	assert.Equal(t, 3, diag.PlayerCount)
	assert.Equal(t, entities.RaffleStateOpen, diag.State)

	ready, _ = f.service.CheckDrawReady(f.start.Add(150 * time.Second))
	assert.True(t, ready)
}

func TestRaffleService_InitiateDraw(t *testing.T) {
	t.Parallel()

	t.Run("not ready returns diagnostic error", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 1, 100*time.Second)
		f.advanceClock(150 * time.Second) // past the interval, but zero entries

		_, err := f.service.InitiateDraw(context.Background())
		var notReady *entities.DrawNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, int64(0), notReady.Balance)
		assert.Equal(t, 0, notReady.PlayerCount)
		assert.Equal(t, entities.RaffleStateOpen, notReady.State)
		assert.Equal(t, entities.RaffleStateOpen, f.service.State())
	})

	t.Run("success transitions to calculating and issues one request", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 1, 100*time.Second)
		f.accounts.On("Transfer", mock.Anything, "alice", testPoolAccount, int64(1)).Return(nil)
		_, err := f.service.Enter(context.Background(), "alice", 1)
		require.NoError(t, err)

		f.advanceClock(150 * time.Second)
		f.randomness.On("RequestRandomWords", mock.Anything, mock.AnythingOfType("interfaces.RandomnessRequest")).
			Return("req-1", nil).Once()

		requestID, err := f.service.InitiateDraw(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "req-1", requestID)
		assert.Equal(t, entities.RaffleStateCalculating, f.service.State())
		f.randomness.AssertNumberOfCalls(t, "RequestRandomWords", 1)

		// A second initiation while calculating must fail without a new request
		_, err = f.service.InitiateDraw(context.Background())
		var notReady *entities.DrawNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, entities.RaffleStateCalculating, notReady.State)
		f.randomness.AssertNumberOfCalls(t, "RequestRandomWords", 1)
	})

	t.Run("rejected request rolls back to open", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 1, 100*time.Second)
		f.accounts.On("Transfer", mock.Anything, "alice", testPoolAccount, int64(1)).Return(nil)
		_, err := f.service.Enter(context.Background(), "alice", 1)
		require.NoError(t, err)

		f.advanceClock(150 * time.Second)
		f.randomness.On("RequestRandomWords", mock.Anything, mock.Anything).
			Return("", errors.New("subscription not funded"))

		_, err = f.service.InitiateDraw(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "randomness request rejected")
		assert.Equal(t, entities.RaffleStateOpen, f.service.State())
		assert.Equal(t, 1, f.service.PlayerCount())
		assert.Equal(t, int64(1), f.service.PoolBalance())
	})
}

// drawReadyFixture enters three players at one unit each and moves the clock
// past the interval, the end-to-end scenario baseline
func drawReadyFixture(t *testing.T) *raffleFixture {
	t.Helper()

	f := newRaffleFixture(t, 1, 100*time.Second)
	f.accounts.On("Transfer", mock.Anything, mock.Anything, testPoolAccount, int64(1)).Return(nil)
	for _, player := range []string{"alice", "bob", "carol"} {
		_, err := f.service.Enter(context.Background(), player, 1)
		require.NoError(t, err)
	}
	f.advanceClock(150 * time.Second)
	f.randomness.On("RequestRandomWords", mock.Anything, mock.Anything).Return("req-1", nil)
	_, err := f.service.InitiateDraw(context.Background())
	require.NoError(t, err)
	return f
}

func TestRaffleService_HandleFulfillment(t *testing.T) {
	t.Parallel()

	t.Run("settles the round end to end", func(t *testing.T) {
		t.Parallel()

		f := drawReadyFixture(t)

		// 7 mod 3 = 1 → bob, the second entrant, takes the full pool
		f.accounts.On("Transfer", mock.Anything, testPoolAccount, "bob", int64(3)).Return(nil).Once()
		f.draws.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.DrawRecord) bool {
			return r.Winner == "bob" && r.Payout == 3 && r.RandomWord == 7 && r.WinnerIndex == 1
		})).Return(nil).Once()

		result, err := f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
		require.NoError(t, err)

		assert.Equal(t, "bob", result.Winner)
		assert.Equal(t, 1, result.WinnerIndex)
		assert.Equal(t, int64(3), result.Payout)
		assert.Equal(t, 3, result.PlayerCount)

		assert.Equal(t, entities.RaffleStateOpen, f.service.State())
		assert.Zero(t, f.service.PlayerCount())
		assert.Zero(t, f.service.PoolBalance())
		assert.Equal(t, "bob", f.service.RecentWinner())
		assert.Equal(t, f.start.Add(150*time.Second), f.service.LastSettledAt())

		var winnerEvents int
		for _, ev := range f.bus.Events {
			if _, ok := ev.(events.WinnerPickedEvent); ok {
				winnerEvents++
			}
		}
		assert.Equal(t, 1, winnerEvents)
		f.accounts.AssertExpectations(t)
		f.draws.AssertExpectations(t)
	})

	t.Run("failed payout leaves round calculating with ledger intact", func(t *testing.T) {
		t.Parallel()

		f := drawReadyFixture(t)
		f.accounts.On("Transfer", mock.Anything, testPoolAccount, "bob", int64(3)).
			Return(errors.New("transfer primitive failure"))

		_, err := f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to pay out pool")

		assert.Equal(t, entities.RaffleStateCalculating, f.service.State())
		assert.Equal(t, 3, f.service.PlayerCount())
		assert.Equal(t, int64(3), f.service.PoolBalance())
		assert.Empty(t, f.service.RecentWinner())
		f.draws.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("failed history record aborts the settlement", func(t *testing.T) {
		t.Parallel()

		f := drawReadyFixture(t)
		f.accounts.On("Transfer", mock.Anything, testPoolAccount, "bob", int64(3)).Return(nil)
		f.draws.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

		_, err := f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
		require.Error(t, err)
		assert.Equal(t, entities.RaffleStateCalculating, f.service.State())
		assert.Equal(t, 3, f.service.PlayerCount())
	})

	t.Run("fulfillment while open rejected", func(t *testing.T) {
		t.Parallel()

		f := newRaffleFixture(t, 1, 100*time.Second)
		_, err := f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected fulfillment")
	})

	t.Run("fulfillment with foreign request id rejected", func(t *testing.T) {
		t.Parallel()

		f := drawReadyFixture(t)
		_, err := f.service.HandleFulfillment(context.Background(), "req-other", []uint64{7})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match outstanding request")
		assert.Equal(t, entities.RaffleStateCalculating, f.service.State())
	})

	t.Run("fulfillment without random words rejected", func(t *testing.T) {
		t.Parallel()

		f := drawReadyFixture(t)
		_, err := f.service.HandleFulfillment(context.Background(), "req-1", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no random words")
		assert.Equal(t, entities.RaffleStateCalculating, f.service.State())
	})

	t.Run("second fulfillment after settlement rejected", func(t *testing.T) {
		t.Parallel()

		f := drawReadyFixture(t)
		f.accounts.On("Transfer", mock.Anything, testPoolAccount, "bob", int64(3)).Return(nil)
		f.draws.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
		require.NoError(t, err)

		_, err = f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected fulfillment")
	})
}

func TestRaffleService_FullRound(t *testing.T) {
	t.Parallel()

	// fee=1, interval=100s, three entries at t=0, draw at t=150, word=7.
	f := drawReadyFixture(t)
	f.accounts.On("Transfer", mock.Anything, testPoolAccount, "bob", int64(3)).Return(nil)
	f.draws.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.HandleFulfillment(context.Background(), "req-1", []uint64{7})
	require.NoError(t, err)
	assert.Equal(t, "bob", result.Winner)

	// The next round reopens cleanly and accepts entries again
	assert.Equal(t, entities.RaffleStateOpen, f.service.State())
	_, err = f.service.Enter(context.Background(), "dave", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.service.PlayerCount())

	// But the new round's clock starts at the settlement, so no immediate draw
	ready, _ := f.service.CheckDrawReady(f.start.Add(151 * time.Second))
	assert.False(t, ready)

	var iface interfaces.RaffleService = f.service
	assert.Equal(t, int64(1), iface.EntranceFee())
}
