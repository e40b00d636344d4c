package settings

import (
	"context"

	"github.com/shopspring/decimal"
)

// Setting keys as stored in the platform_settings table
const (
	KeyLargeDepositThreshold    = "large_deposit_threshold"
	KeyLargeWithdrawalThreshold = "large_withdrawal_threshold"
	KeyRapidTxCount             = "rapid_tx_count"
	KeyRapidWindowMinutes       = "rapid_window_minutes"
	KeyDepositApprovalThreshold = "deposit_approval_threshold"
	KeyAutoApproveWithdrawals   = "auto_approve_withdrawals"
	KeyWithdrawalFeePercent     = "withdrawal_fee_percent"
	KeyYieldPayoutsEnabled      = "yield_payouts_enabled"
)

// Settings are the operator-tunable thresholds consumed by the compliance
// rules and the approval-routing logic. They are re-read from the store on
// each evaluation; nothing caches them.
type Settings struct {
	LargeDepositThreshold    decimal.Decimal
	LargeWithdrawalThreshold decimal.Decimal
	RapidTxCount             int
	RapidWindowMinutes       int
	DepositApprovalThreshold decimal.Decimal // zero disables approval routing for deposits
	AutoApproveWithdrawals   bool
	WithdrawalFeePercent     decimal.Decimal
	YieldPayoutsEnabled      bool
}

// Defaults returns the settings used when a key is absent from the store
func Defaults() *Settings {
	return &Settings{
		LargeDepositThreshold:    decimal.NewFromInt(10000),
		LargeWithdrawalThreshold: decimal.NewFromInt(10000),
		RapidTxCount:             5,
		RapidWindowMinutes:       10,
		DepositApprovalThreshold: decimal.Zero,
		AutoApproveWithdrawals:   false,
		WithdrawalFeePercent:     decimal.Zero,
		YieldPayoutsEnabled:      true,
	}
}

// Repository loads settings from the external configuration store
type Repository interface {
	Load(ctx context.Context) (*Settings, error)

	// Set upserts a single setting value
	Set(ctx context.Context, key, value string) error
}
