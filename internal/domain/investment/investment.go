package investment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines the investment lifecycle states
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusMatured   Status = "matured"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw investment status string
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusActive, StatusMatured, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown investment status: %q", raw)
	}
}

// Investment represents principal committed into a project plan. TotalEarned
// only ever grows; the status moves to matured exactly once.
type Investment struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	ProjectID     uuid.UUID       `json:"project_id"`
	Amount        decimal.Decimal `json:"amount"`
	APY           decimal.Decimal `json:"apy"`
	TermMonths    int             `json:"term_months"`
	MonthlyYield  decimal.Decimal `json:"monthly_yield"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	Status        Status          `json:"status"`
	StartDate     time.Time       `json:"start_date"`
	MaturityDate  time.Time       `json:"maturity_date"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// MonthlyYieldFor derives the monthly payout from principal and APY:
// amount × apy / 12 / 100
func MonthlyYieldFor(amount, apy decimal.Decimal) decimal.Decimal {
	return amount.Mul(apy).Div(decimal.NewFromInt(12)).Div(decimal.NewFromInt(100))
}

// New creates an active investment starting now, with its maturity date at
// the end of the term. transactionID references the originating invest-type
// transaction.
func New(userID, projectID uuid.UUID, amount, apy decimal.Decimal, termMonths int, transactionID uuid.UUID) (*Investment, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if apy.Sign() < 0 || termMonths <= 0 {
		return nil, ErrInvalidPlan
	}

	now := time.Now()
	return &Investment{
		ID:            uuid.New(),
		UserID:        userID,
		ProjectID:     projectID,
		Amount:        amount,
		APY:           apy,
		TermMonths:    termMonths,
		MonthlyYield:  MonthlyYieldFor(amount, apy),
		TotalEarned:   decimal.Zero,
		Status:        StatusActive,
		StartDate:     now,
		MaturityDate:  now.AddDate(0, termMonths, 0),
		TransactionID: transactionID,
	}, nil
}

// IsMatureAt reports whether the investment is due for maturity settlement
func (i *Investment) IsMatureAt(now time.Time) bool {
	return i.Status == StatusActive && !i.MaturityDate.After(now)
}

// EligibleForYieldAt reports whether a yield payout may be attempted for the
// current period: the investment must be active with a positive monthly
// yield, and at least 30 days must have elapsed since the start date.
func (i *Investment) EligibleForYieldAt(now time.Time) bool {
	if i.Status != StatusActive || i.MonthlyYield.Sign() <= 0 {
		return false
	}
	return now.Sub(i.StartDate) >= 30*24*time.Hour
}

// PeriodOf returns the calendar-month payout deduplication key for a point
// in time, e.g. "2026-09"
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}
