package entities

import "time"

// DrawRecord is the durable history row written for every settled round
type DrawRecord struct {
	ID          int64     `db:"id"`
	RequestID   string    `db:"request_id"`   // Correlation token of the fulfilled randomness request
	RandomWord  uint64    `db:"random_word"`  // First random word supplied by the oracle
	Winner      string    `db:"winner"`       // Account credited with the pool
	WinnerIndex int       `db:"winner_index"` // Selected position in the pre-reset participant list
	Payout      int64     `db:"payout"`
	PlayerCount int       `db:"player_count"`
	SettledAt   time.Time `db:"settled_at"`
	CreatedAt   time.Time `db:"created_at"`
}
