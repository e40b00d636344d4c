package investment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidPrincipal = errors.New("investment amount must be positive")
	ErrInvalidPlan      = errors.New("invalid investment plan")
)

// Repository defines investment persistence operations
type Repository interface {
	Create(ctx context.Context, inv *Investment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Investment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Investment, error)

	// ListActiveYielding returns active investments with a positive monthly
	// yield, the candidate set for the payout sweep
	ListActiveYielding(ctx context.Context) ([]*Investment, error)

	// ListMaturedDue returns active investments whose maturity date has
	// passed as of now
	ListMaturedDue(ctx context.Context, now time.Time) ([]*Investment, error)

	// MarkMatured flips an active investment to matured. Returns
	// ErrNotActive when the investment already left the active state, which
	// makes the maturity sweep naturally idempotent.
	MarkMatured(ctx context.Context, id uuid.UUID) error

	// AddEarnings increments the monotone total_earned accumulator
	AddEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	WithTx(tx pgx.Tx) Repository
}

// PayoutRepository defines yield payout persistence operations
type PayoutRepository interface {
	// Create inserts the payout record. Fails with ErrDuplicatePayout when a
	// payout already exists for the (investment, period) pair.
	Create(ctx context.Context, payout *YieldPayout) error

	Exists(ctx context.Context, investmentID uuid.UUID, period string) (bool, error)

	WithTx(tx pgx.Tx) PayoutRepository
}

// ErrInvestmentNotFound indicates a missing investment
type ErrInvestmentNotFound struct {
	ID uuid.UUID
}

func (e ErrInvestmentNotFound) Error() string {
	return "investment not found: " + e.ID.String()
}

// ErrNotActive indicates a lifecycle action on an investment that already
// left the active state
type ErrNotActive struct {
	ID uuid.UUID
}

func (e ErrNotActive) Error() string {
	return "investment is not active: " + e.ID.String()
}

// ErrDuplicatePayout indicates a yield payout already exists for the period.
// Callers treat it as a silent skip, not a failure.
type ErrDuplicatePayout struct {
	InvestmentID uuid.UUID
	Period       string
}

func (e ErrDuplicatePayout) Error() string {
	return "yield payout already exists for investment " + e.InvestmentID.String() + " period " + e.Period
}
