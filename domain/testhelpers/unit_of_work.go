package testhelpers

import (
	"context"

	"raffler/domain/interfaces"
)

// FakeUnitOfWork is a hand-rolled unit of work for service tests. It hands
// out the configured repositories and counts lifecycle calls so tests can
// assert that failed operations rolled back rather than committed.
type FakeUnitOfWork struct {
	Accounts interfaces.AccountRepository
	Draws    interfaces.DrawRecordRepository
	Bus      interfaces.EventPublisher

	Began      int
	Committed  int
	RolledBack int

	BeginErr  error
	CommitErr error

	open bool
}

func (u *FakeUnitOfWork) Begin(ctx context.Context) error {
	if u.BeginErr != nil {
		return u.BeginErr
	}
	u.Began++
	u.open = true
	return nil
}

func (u *FakeUnitOfWork) Commit() error {
	if u.CommitErr != nil {
		return u.CommitErr
	}
	u.Committed++
	u.open = false
	return nil
}

// Rollback counts only when a begun transaction was not committed, matching
// the deferred-rollback idiom at call sites
func (u *FakeUnitOfWork) Rollback() error {
	if u.open {
		u.RolledBack++
		u.open = false
	}
	return nil
}

func (u *FakeUnitOfWork) AccountRepository() interfaces.AccountRepository {
	return u.Accounts
}

func (u *FakeUnitOfWork) DrawRecordRepository() interfaces.DrawRecordRepository {
	return u.Draws
}

func (u *FakeUnitOfWork) EventBus() interfaces.EventPublisher {
	return u.Bus
}

// FakeUnitOfWorkFactory returns the same unit of work for every Create call
type FakeUnitOfWorkFactory struct {
	UoW *FakeUnitOfWork
}

func (f *FakeUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.UoW
}
