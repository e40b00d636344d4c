package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type defines the kinds of money movement
type Type string

const (
	TypeDeposit  Type = "deposit"
	TypeWithdraw Type = "withdraw"
	TypeInvest   Type = "invest"
	TypeYield    Type = "yield"
	TypeRefund   Type = "refund"
	TypeFee      Type = "fee"
)

// ParseType validates a raw transaction type string
func ParseType(raw string) (Type, error) {
	switch t := Type(raw); t {
	case TypeDeposit, TypeWithdraw, TypeInvest, TypeYield, TypeRefund, TypeFee:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", raw)
	}
}

// IsSystemInitiated reports whether transactions of this type are created by
// the platform itself (already completed, never routed through approval)
func (t Type) IsSystemInitiated() bool {
	switch t {
	case TypeYield, TypeRefund, TypeFee, TypeInvest:
		return true
	case TypeDeposit, TypeWithdraw:
		return false
	}
	return false
}

// Status defines the transaction state machine states
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusRequiresApproval Status = "requires_approval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// ParseStatus validates a raw transaction status string
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusProcessing, StatusRequiresApproval,
		StatusCompleted, StatusFailed, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown transaction status: %q", raw)
	}
}

// IsTerminal reports whether the status is final. Once a transaction reaches
// a terminal status its record and balance side effect are immutable.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	case StatusPending, StatusProcessing, StatusRequiresApproval:
		return false
	}
	return false
}

// IsReviewable reports whether an admin approve/reject action may act on a
// transaction in this status
func (s Status) IsReviewable() bool {
	switch s {
	case StatusPending, StatusRequiresApproval:
		return true
	case StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return false
	}
	return false
}

// CanTransitionTo enforces the state machine:
// pending → {processing, requires_approval, completed, failed, cancelled},
// processing/requires_approval → {completed, failed, cancelled}.
// Terminal states admit no further transitions.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		switch next {
		case StatusProcessing, StatusRequiresApproval, StatusCompleted, StatusFailed, StatusCancelled:
			return true
		}
		return false
	case StatusProcessing, StatusRequiresApproval:
		switch next {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return true
		}
		return false
	case StatusCompleted, StatusFailed, StatusCancelled:
		return false
	}
	return false
}

// Transaction records one attempted money movement against a user's wallet
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Type       Type            `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	NetAmount  decimal.Decimal `json:"net_amount"`
	Status     Status          `json:"status"`
	Method     string          `json:"method,omitempty"`
	TxHash     string          `json:"tx_hash,omitempty"`
	ToAddress  string          `json:"to_address,omitempty"`
	ReviewedBy *uuid.UUID      `json:"reviewed_by,omitempty"`
	ReviewNote string          `json:"review_note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewUserInitiated creates a deposit or withdrawal request in the given
// initial status. Fee is deducted from the gross amount.
func NewUserInitiated(userID uuid.UUID, txType Type, amount, fee decimal.Decimal, method string, status Status) (*Transaction, error) {
	if txType != TypeDeposit && txType != TypeWithdraw {
		return nil, fmt.Errorf("type %s is not user initiated", txType)
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if fee.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	return &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      txType,
		Amount:    amount,
		Fee:       fee,
		NetAmount: amount.Sub(fee),
		Status:    status,
		Method:    method,
		CreatedAt: time.Now(),
	}, nil
}

// NewSystemInitiated creates an already-completed transaction (invest, yield,
// refund, fee). These never pass through the approval workflow; their balance
// effect is applied in the same atomic step as creation.
func NewSystemInitiated(userID uuid.UUID, txType Type, amount decimal.Decimal, method string) (*Transaction, error) {
	if !txType.IsSystemInitiated() {
		return nil, fmt.Errorf("type %s is not system initiated", txType)
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	return &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      txType,
		Amount:    amount,
		Fee:       decimal.Zero,
		NetAmount: amount,
		Status:    StatusCompleted,
		Method:    method,
		CreatedAt: time.Now(),
	}, nil
}

// Review applies an admin decision (completed or cancelled) to a reviewable
// transaction. Returns ErrAlreadyProcessed when the transaction is not in a
// reviewable state.
func (t *Transaction) Review(next Status, reviewerID uuid.UUID, note string) error {
	if next != StatusCompleted && next != StatusCancelled {
		return fmt.Errorf("invalid review decision: %s", next)
	}
	if !t.Status.IsReviewable() || !t.Status.CanTransitionTo(next) {
		return ErrAlreadyProcessed{ID: t.ID, Status: t.Status}
	}

	t.Status = next
	t.ReviewedBy = &reviewerID
	t.ReviewNote = note
	return nil
}
