package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Wallet holds the single spendable balance for a user. One wallet per user,
// created lazily on the first completed credit.
type Wallet struct {
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// New creates an empty wallet for the given user
func New(userID uuid.UUID) *Wallet {
	return &Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		UpdatedAt: time.Now(),
	}
}

// Credit adds the given amount to the balance
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now()
	return nil
}

// Debit subtracts the given amount from the balance. The balance is never
// allowed to go negative: a debit that would breach zero fails with
// ErrInsufficientFunds and leaves the wallet unchanged.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = time.Now()
	return nil
}

// CanDebit reports whether the wallet can cover the given amount
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
