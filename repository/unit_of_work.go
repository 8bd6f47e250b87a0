package repository

import (
	"context"
	"fmt"

	"raffler/database"
	"raffler/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	accountRepo            interfaces.AccountRepository
	drawRecordRepo         interfaces.DrawRecordRepository
}

type unitOfWorkFactory struct {
	db     *database.DB
	newBus func() interfaces.TransactionalEventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Each unit of work
// gets its own transactional publisher so buffered events stay scoped to one
// transaction.
func NewUnitOfWorkFactory(db *database.DB, newBus func() interfaces.TransactionalEventPublisher) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:     db,
		newBus: newBus,
	}
}

// Create creates a new UnitOfWork
func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: f.newBus(),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.accountRepo = NewAccountRepositoryWithTx(tx)
	u.drawRecordRepo = NewDrawRecordRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// DrawRecordRepository returns the draw record repository for this unit of work
func (u *unitOfWork) DrawRecordRepository() interfaces.DrawRecordRepository {
	if u.drawRecordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.drawRecordRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
