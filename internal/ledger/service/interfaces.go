// Package service implements the financial ledger core: money-movement
// requests and their approval state machine, the investment lifecycle, and
// the compliance rule engine. Every balance-affecting operation runs as one
// unit of work inside a database transaction supplied by the TxRunner.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/compliance"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/shopspring/decimal"
)

// TransactionService owns the money-movement lifecycle: user requests,
// admin approval decisions, and the operator query surface over the ledger.
type TransactionService interface {
	RequestDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method string) (*transaction.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method, toAddress string) (*transaction.Transaction, error)
	Approve(ctx context.Context, adminID, transactionID uuid.UUID, note string) (*transaction.Transaction, error)
	Reject(ctx context.Context, adminID, transactionID uuid.UUID, note string) (*transaction.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

// InvestmentService owns the investment lifecycle: principal commitment,
// the scheduler-driven yield sweep, and maturity settlement.
type InvestmentService interface {
	CreateInvestment(ctx context.Context, userID, projectID uuid.UUID, amount, apy decimal.Decimal, termMonths int) (*investment.Investment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*investment.Investment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error)
	ProcessYieldPayouts(ctx context.Context) (*SweepSummary, error)
	CheckMaturities(ctx context.Context) (*SweepSummary, error)
}

// AMLService evaluates completed transactions against the detection rules
// and manages the flag investigation lifecycle. EvaluateCompleted never
// returns an error: compliance detection must not block the transaction it
// is evaluating.
type AMLService interface {
	EvaluateCompleted(ctx context.Context, txn *transaction.Transaction)
	ScanRecent(ctx context.Context, window time.Duration) (int, error)
	ManualFlag(ctx context.Context, operatorID, userID uuid.UUID, severity compliance.Severity, description string) (*compliance.Flag, error)
	UpdateFlagStatus(ctx context.Context, operatorID, flagID uuid.UUID, status compliance.Status, note string) (*compliance.Flag, error)
	GetRiskProfile(ctx context.Context, userID uuid.UUID) (*RiskProfile, error)
	ListFlags(ctx context.Context, filter compliance.ListFilter) ([]*compliance.Flag, error)
}

// Notifier is the external notification sink. Delivery mechanics are its
// concern, not the ledger's.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, category string) error
	NotifyOperators(ctx context.Context, title, message string) error
}

// Auditor is the external append-only audit sink
type Auditor interface {
	Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]interface{}) error
}

// RiskProfile is the aggregate view operators use to judge a user
type RiskProfile struct {
	UserID         uuid.UUID       `json:"user_id"`
	AccountAgeDays int             `json:"account_age_days"`
	OpenFlagCount  int             `json:"open_flag_count"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
}

// SweepSummary reports one scheduler sweep over investments. Failures are
// per item; a non-empty Errors slice does not mean the sweep aborted.
type SweepSummary struct {
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}
