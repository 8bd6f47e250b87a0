package repository

import (
	"context"
	"fmt"

	"raffler/database"
	"raffler/domain/entities"
	"raffler/infrastructure/observability"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface over the
// accounts ledger table
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// NewAccountRepositoryWithTx creates a new account repository bound to a transaction
func NewAccountRepositoryWithTx(tx Queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetBalance returns the balance of an account. Unknown accounts have a
// balance of zero.
func (r *AccountRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("account", "GetBalance")()

	query := `SELECT balance FROM accounts WHERE id = $1`

	var balance int64
	err := r.q.QueryRow(ctx, query, accountID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for account %s: %w", accountID, err)
	}

	return balance, nil
}

// Deposit credits an account, creating it if it does not exist
func (r *AccountRepository) Deposit(ctx context.Context, accountID string, amount int64) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("account", "Deposit")()

	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}

	query := `
		INSERT INTO accounts (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET balance = accounts.balance + $2, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, accountID, amount); err != nil {
		return fmt.Errorf("failed to deposit to account %s: %w", accountID, err)
	}

	return nil
}

// Transfer atomically moves funds from one account to another. Debit and
// credit run as a single statement, so the transfer is all-or-nothing even on
// a pool-backed repository outside any enclosing transaction. The debit is
// guarded so a concurrent transfer can never take the source negative; it
// fails with entities.ErrInsufficientFunds instead.
func (r *AccountRepository) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("account", "Transfer")()

	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if fromAccountID == toAccountID {
		return fmt.Errorf("cannot transfer from account %s to itself", fromAccountID)
	}

	// The credit only runs when the guarded debit matched a row, so zero rows
	// affected means insufficient funds and nothing moved
	query := `
		WITH debit AS (
			UPDATE accounts
			SET balance = balance - $3, updated_at = NOW()
			WHERE id = $1 AND balance >= $3
			RETURNING id
		)
		INSERT INTO accounts (id, balance)
		SELECT $2, $3 FROM debit
		ON CONFLICT (id) DO UPDATE
		SET balance = accounts.balance + $3, updated_at = NOW()
	`

	tag, err := r.q.Exec(ctx, query, fromAccountID, toAccountID, amount)
	if err != nil {
		return fmt.Errorf("failed to transfer from %s to %s: %w", fromAccountID, toAccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s has insufficient balance for %d: %w", fromAccountID, amount, entities.ErrInsufficientFunds)
	}

	return nil
}
