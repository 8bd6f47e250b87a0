package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRaffle(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raffle := NewRaffle(100, 5*time.Minute, now)

	assert.Equal(t, RaffleStateOpen, raffle.State)
	assert.Equal(t, int64(100), raffle.EntranceFee)
	assert.Equal(t, 5*time.Minute, raffle.Interval)
	assert.Equal(t, now, raffle.LastSettledAt)
	assert.Empty(t, raffle.Players)
	assert.Zero(t, raffle.PoolBalance)
	assert.Empty(t, raffle.RecentWinner)
}

func TestRaffle_PlayerAt(t *testing.T) {
	t.Parallel()

	raffle := NewRaffle(1, time.Minute, time.Now())
	raffle.AddEntry("alice", 1)
	raffle.AddEntry("bob", 1)
	raffle.AddEntry("alice", 1) // second ticket for the same account

	tests := []struct {
		name    string
		index   int
		want    string
		wantErr bool
	}{
		{name: "first entry", index: 0, want: "alice"},
		{name: "second entry", index: 1, want: "bob"},
		{name: "duplicate entry kept in order", index: 2, want: "alice"},
		{name: "index past end", index: 3, wantErr: true},
		{name: "negative index", index: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := raffle.PlayerAt(tt.index)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPlayerIndexOutOfRange)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRaffle_AddEntry(t *testing.T) {
	t.Parallel()

	raffle := NewRaffle(10, time.Minute, time.Now())
	raffle.AddEntry("alice", 10)
	raffle.AddEntry("bob", 15) // overpayment joins the pool in full

	assert.Equal(t, 2, raffle.PlayerCount())
	assert.Equal(t, int64(25), raffle.PoolBalance)
}

func TestRaffle_DrawLifecycle(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raffle := NewRaffle(1, time.Minute, start)
	raffle.AddEntry("alice", 1)
	raffle.AddEntry("bob", 1)

	raffle.BeginDraw("req-1")
	assert.Equal(t, RaffleStateCalculating, raffle.State)
	assert.Equal(t, "req-1", raffle.PendingRequestID)

	settledAt := start.Add(2 * time.Minute)
	raffle.CompleteSettlement("bob", settledAt)

	assert.Equal(t, RaffleStateOpen, raffle.State)
	assert.Equal(t, "bob", raffle.RecentWinner)
	assert.Empty(t, raffle.Players)
	assert.Zero(t, raffle.PoolBalance)
	assert.Equal(t, settledAt, raffle.LastSettledAt)
	assert.Empty(t, raffle.PendingRequestID)
}

func TestRaffle_AbortDraw(t *testing.T) {
	t.Parallel()

	raffle := NewRaffle(1, time.Minute, time.Now())
	raffle.AddEntry("alice", 1)
	raffle.BeginDraw("req-1")

	raffle.AbortDraw()

	assert.Equal(t, RaffleStateOpen, raffle.State)
	assert.Empty(t, raffle.PendingRequestID)
	// The ledger survives an aborted draw
	assert.Equal(t, 1, raffle.PlayerCount())
	assert.Equal(t, int64(1), raffle.PoolBalance)
}

func TestIsDrawReady(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	interval := 100 * time.Second

	tests := []struct {
		name        string
		now         time.Time
		state       RaffleState
		balance     int64
		playerCount int
		want        bool
	}{
		{
			name:        "all conditions met",
			now:         base.Add(150 * time.Second),
			state:       RaffleStateOpen,
			balance:     3,
			playerCount: 3,
			want:        true,
		},
		{
			name:        "interval exactly elapsed",
			now:         base.Add(100 * time.Second),
			state:       RaffleStateOpen,
			balance:     1,
			playerCount: 1,
			want:        true,
		},
		{
			name:        "interval not yet elapsed",
			now:         base.Add(99 * time.Second),
			state:       RaffleStateOpen,
			balance:     3,
			playerCount: 3,
			want:        false,
		},
		{
			name:        "round calculating",
			now:         base.Add(150 * time.Second),
			state:       RaffleStateCalculating,
			balance:     3,
			playerCount: 3,
			want:        false,
		},
		{
			name:        "zero balance",
			now:         base.Add(150 * time.Second),
			state:       RaffleStateOpen,
			balance:     0,
			playerCount: 3,
			want:        false,
		},
		{
			name:        "no players",
			now:         base.Add(150 * time.Second),
			state:       RaffleStateOpen,
			balance:     3,
			playerCount: 0,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IsDrawReady(tt.now, base, interval, tt.state, tt.balance, tt.playerCount)
			assert.Equal(t, tt.want, got)

			// Determinism: identical inputs always yield identical output
			again := IsDrawReady(tt.now, base, interval, tt.state, tt.balance, tt.playerCount)
			assert.Equal(t, got, again)
		})
	}
}

func TestSelectWinnerIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		randomWord  uint64
		playerCount int
		want        int
		wantErr     bool
	}{
		{name: "7 mod 3", randomWord: 7, playerCount: 3, want: 1},
		{name: "zero word", randomWord: 0, playerCount: 5, want: 0},
		{name: "word smaller than count", randomWord: 2, playerCount: 10, want: 2},
		{name: "max uint64", randomWord: ^uint64(0), playerCount: 7, want: int(^uint64(0) % 7)},
		{name: "single player", randomWord: 123456789, playerCount: 1, want: 0},
		{name: "empty pool", randomWord: 42, playerCount: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SelectWinnerIndex(tt.randomWord, tt.playerCount)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoParticipants)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.Less(t, got, tt.playerCount)
		})
	}
}

func TestRaffleState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "open", RaffleStateOpen.String())
	assert.Equal(t, "calculating", RaffleStateCalculating.String())
	assert.Equal(t, "unknown(99)", RaffleState(99).String())
}
