package investment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus defines yield payout record states
type PayoutStatus string

const (
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// YieldPayout is the one-row-per-(investment, period) idempotency record for
// monthly yield crediting. The unique (investment_id, period) constraint is
// what makes the payout sweep safe to re-run.
type YieldPayout struct {
	ID            uuid.UUID       `json:"id"`
	InvestmentID  uuid.UUID       `json:"investment_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Period        string          `json:"period"`
	Status        PayoutStatus    `json:"status"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewYieldPayout creates a completed payout record for the given period
func NewYieldPayout(inv *Investment, period string, transactionID uuid.UUID) *YieldPayout {
	return &YieldPayout{
		ID:            uuid.New(),
		InvestmentID:  inv.ID,
		UserID:        inv.UserID,
		Amount:        inv.MonthlyYield,
		Period:        period,
		Status:        PayoutStatusCompleted,
		TransactionID: transactionID,
		CreatedAt:     time.Now(),
	}
}
