package interfaces

import (
	"context"

	"raffler/domain/entities"
)

// AccountRepository is the treasury: account balances with an atomic
// all-or-nothing transfer primitive. Implementations run inside the caller's
// unit of work.
type AccountRepository interface {
	// GetBalance returns the balance of an account, zero for unknown accounts
	GetBalance(ctx context.Context, account string) (int64, error)

	// Deposit credits an account, creating it if absent
	Deposit(ctx context.Context, account string, amount int64) error

	// Transfer atomically moves amount from one account to another. Fails
	// with entities.ErrInsufficientFunds when the debit would overdraw.
	Transfer(ctx context.Context, from, to string, amount int64) error
}

// DrawRecordRepository persists settled-round history
type DrawRecordRepository interface {
	Create(ctx context.Context, record *entities.DrawRecord) error
	GetLatest(ctx context.Context) (*entities.DrawRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*entities.DrawRecord, error)
}
