package compliance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListFilter narrows flag listings for the operator query surface
type ListFilter struct {
	UserID   *uuid.UUID
	Status   *Status
	Severity *Severity
	Limit    int
	Offset   int
}

// Repository defines compliance flag persistence operations
type Repository interface {
	Create(ctx context.Context, flag *Flag) error
	GetByID(ctx context.Context, id uuid.UUID) (*Flag, error)
	Update(ctx context.Context, flag *Flag) error
	List(ctx context.Context, filter ListFilter) ([]*Flag, error)

	// CountOpenByUser counts a user's non-terminal flags, part of the risk
	// profile projection
	CountOpenByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// ExistsForTransaction reports whether any flag already references the
	// transaction, so the batch sweep does not duplicate findings the
	// inline evaluation already produced
	ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrFlagNotFound indicates a missing compliance flag
type ErrFlagNotFound struct {
	ID uuid.UUID
}

func (e ErrFlagNotFound) Error() string {
	return "compliance flag not found: " + e.ID.String()
}

// ErrFlagClosed indicates a lifecycle action on a resolved or dismissed flag
type ErrFlagClosed struct {
	ID     uuid.UUID
	Status Status
}

func (e ErrFlagClosed) Error() string {
	return "compliance flag " + e.ID.String() + " is closed, status: " + string(e.Status)
}
