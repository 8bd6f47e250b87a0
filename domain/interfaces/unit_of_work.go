package interfaces

import "context"

// UnitOfWork scopes repository access and buffered event publishing to one
// database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	DrawRecordRepository() DrawRecordRepository

	// EventBus returns the transactional publisher whose events flush on commit
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
