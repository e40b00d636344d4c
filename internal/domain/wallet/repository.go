package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines wallet persistence operations. Credit and Debit are the
// only balance mutators and are meant to run inside the caller's enclosing
// database transaction via WithTx, so the balance change commits or rolls
// back together with the transaction record that triggered it.
type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// LockForUpdate acquires a row lock on the wallet for the duration of
	// the enclosing transaction
	LockForUpdate(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// Credit adds amount to the user's balance, creating the wallet row if
	// it does not exist yet
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// Debit subtracts amount from the user's balance. Fails with
	// ErrInsufficientFunds when the balance would go negative and with
	// ErrWalletNotFound when no wallet exists.
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	WithTx(tx pgx.Tx) Repository
}

// ErrWalletNotFound indicates a missing wallet row
type ErrWalletNotFound struct {
	UserID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found for user: " + e.UserID.String()
}
