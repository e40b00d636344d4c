package compliance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FlagType identifies which detection rule (or manual action) produced a flag
type FlagType string

const (
	FlagLargeDeposit      FlagType = "large_deposit"
	FlagLargeWithdrawal   FlagType = "large_withdrawal"
	FlagRapidTransactions FlagType = "rapid_transactions"
	FlagVelocityCheck     FlagType = "velocity_check"
	FlagSuspiciousPattern FlagType = "suspicious_pattern"
	FlagManual            FlagType = "manual_flag"
	FlagGeographicRisk    FlagType = "geographic_risk"
)

// ParseFlagType validates a raw flag type string
func ParseFlagType(raw string) (FlagType, error) {
	switch t := FlagType(raw); t {
	case FlagLargeDeposit, FlagLargeWithdrawal, FlagRapidTransactions,
		FlagVelocityCheck, FlagSuspiciousPattern, FlagManual, FlagGeographicRisk:
		return t, nil
	default:
		return "", fmt.Errorf("unknown flag type: %q", raw)
	}
}

// Severity is a four-level ordinal driving operator notification
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a raw severity string
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(raw); s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return s, nil
	default:
		return "", fmt.Errorf("unknown severity: %q", raw)
	}
}

// Rank returns the ordinal position for severity comparison: low < medium <
// high < critical
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// RequiresOperatorAlert reports whether flags of this severity trigger a
// proactive operator notification
func (s Severity) RequiresOperatorAlert() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

// Status defines the flag investigation lifecycle
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusDismissed     Status = "dismissed"
	StatusEscalated     Status = "escalated"
)

// ParseStatus validates a raw flag status string
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusDismissed, StatusEscalated:
		return s, nil
	default:
		return "", fmt.Errorf("unknown flag status: %q", raw)
	}
}

// IsTerminal reports whether the flag lifecycle has ended. Escalated flags
// remain open for revisiting.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusDismissed:
		return true
	case StatusOpen, StatusInvestigating, StatusEscalated:
		return false
	}
	return false
}

// Flag is one AML finding against a user, optionally tied to the transaction
// that triggered it. Manual flags carry no transaction reference.
type Flag struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	TransactionID  *uuid.UUID `json:"transaction_id,omitempty"`
	FlagType       FlagType   `json:"flag_type"`
	Severity       Severity   `json:"severity"`
	Status         Status     `json:"status"`
	Description    string     `json:"description,omitempty"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewFlag creates an open flag produced by a detection rule
func NewFlag(userID uuid.UUID, transactionID *uuid.UUID, flagType FlagType, severity Severity, description string) *Flag {
	return &Flag{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: transactionID,
		FlagType:      flagType,
		Severity:      severity,
		Status:        StatusOpen,
		Description:   description,
		CreatedAt:     time.Now(),
	}
}

// Transition moves the flag through its investigation lifecycle. A flag in a
// terminal state rejects any further transition.
func (f *Flag) Transition(next Status, operatorID uuid.UUID, note string) error {
	if f.Status.IsTerminal() {
		return ErrFlagClosed{ID: f.ID, Status: f.Status}
	}

	f.Status = next
	if next.IsTerminal() {
		f.ResolutionNote = note
		f.ResolvedBy = &operatorID
	}
	return nil
}
