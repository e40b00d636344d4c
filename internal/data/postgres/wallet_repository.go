// Package postgres provides PostgreSQL implementations of the domain
// repositories. All balance-affecting writes are expected to run inside an
// enclosing transaction supplied through WithTx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction so wallet
// mutations commit together with the transaction record that caused them
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByUserID retrieves a user's wallet
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT user_id, balance, updated_at
		FROM wallets
		WHERE user_id = $1
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to get wallet", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

// LockForUpdate obtains a row lock on the wallet for the duration of the
// enclosing transaction
func (r *WalletRepository) LockForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT user_id, balance, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`

	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to lock wallet", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	return &w, nil
}

// Credit adds amount to the user's balance, creating the wallet lazily on
// first credit
func (r *WalletRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return wallet.ErrInvalidAmount
	}

	query := `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
	`

	if _, err := r.querier.Exec(ctx, query, userID, amount); err != nil {
		r.logger.Error("Failed to credit wallet", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	return nil
}

// Debit subtracts amount from the user's balance. The non-negativity
// invariant is enforced in the statement itself: the update only matches
// when the balance covers the amount, so a concurrent writer can never drive
// the balance below zero.
func (r *WalletRepository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return wallet.ErrInvalidAmount
	}

	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1
	`

	result, err := r.querier.Exec(ctx, query, amount, userID)
	if err != nil {
		r.logger.Error("Failed to debit wallet", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing wallet from one that cannot cover the amount
		if _, getErr := r.GetByUserID(ctx, userID); getErr != nil {
			return getErr
		}
		return wallet.ErrInsufficientFunds
	}

	return nil
}
