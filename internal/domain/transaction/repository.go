package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a non-positive amount or negative fee
var ErrInvalidAmount = errors.New("transaction amount must be positive")

// ListFilter narrows transaction listings for the operator query surface
type ListFilter struct {
	UserID *uuid.UUID
	Status *Status
	Type   *Type
	Limit  int
	Offset int
}

// Repository defines transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// LockForUpdate acquires a row lock so concurrent approve/reject calls
	// on the same transaction serialize
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// UpdateReview persists the status, reviewer and note fields after an
	// admin decision
	UpdateReview(ctx context.Context, txn *Transaction) error

	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	// CountByUserSince counts a user's transactions created after the cutoff
	CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// SumAmountByUserSince sums a user's transaction amounts created after
	// the cutoff, across all types
	SumAmountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)

	// ListCompletedSince returns completed transactions in a trailing window,
	// used by the batch compliance sweep
	ListCompletedSince(ctx context.Context, since time.Time) ([]*Transaction, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing transaction
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID.String()
}

// ErrAlreadyProcessed indicates a state machine transition attempted on a
// transaction that is no longer reviewable
type ErrAlreadyProcessed struct {
	ID     uuid.UUID
	Status Status
}

func (e ErrAlreadyProcessed) Error() string {
	return "transaction " + e.ID.String() + " already processed, status: " + string(e.Status)
}
