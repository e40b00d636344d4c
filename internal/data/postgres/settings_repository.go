package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// SettingsRepository implements the settings.Repository interface for
// PostgreSQL. Load hits the store on every call: threshold changes made by
// operators take effect on the next evaluation without a restart.
type SettingsRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettingsRepository creates a new PostgreSQL settings repository
func NewSettingsRepository(logger *slog.Logger, db *persistence.PostgresDB) settings.Repository {
	return &SettingsRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Load reads all settings rows and overlays them onto the defaults.
// Malformed values fall back to the default for their key.
func (r *SettingsRepository) Load(ctx context.Context) (*settings.Settings, error) {
	query := `SELECT key, value FROM platform_settings`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to load platform settings", "error", err)
		return nil, fmt.Errorf("failed to load platform settings: %w", err)
	}
	defer rows.Close()

	s := settings.Defaults()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		r.apply(s, key, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading settings rows: %w", err)
	}

	return s, nil
}

func (r *SettingsRepository) apply(s *settings.Settings, key, value string) {
	switch key {
	case settings.KeyLargeDepositThreshold:
		if d, err := decimal.NewFromString(value); err == nil {
			s.LargeDepositThreshold = d
		}
	case settings.KeyLargeWithdrawalThreshold:
		if d, err := decimal.NewFromString(value); err == nil {
			s.LargeWithdrawalThreshold = d
		}
	case settings.KeyRapidTxCount:
		if n, err := strconv.Atoi(value); err == nil {
			s.RapidTxCount = n
		}
	case settings.KeyRapidWindowMinutes:
		if n, err := strconv.Atoi(value); err == nil {
			s.RapidWindowMinutes = n
		}
	case settings.KeyDepositApprovalThreshold:
		if d, err := decimal.NewFromString(value); err == nil {
			s.DepositApprovalThreshold = d
		}
	case settings.KeyAutoApproveWithdrawals:
		if b, err := strconv.ParseBool(value); err == nil {
			s.AutoApproveWithdrawals = b
		}
	case settings.KeyWithdrawalFeePercent:
		if d, err := decimal.NewFromString(value); err == nil {
			s.WithdrawalFeePercent = d
		}
	case settings.KeyYieldPayoutsEnabled:
		if b, err := strconv.ParseBool(value); err == nil {
			s.YieldPayoutsEnabled = b
		}
	default:
		r.logger.Warn("Unknown platform setting", "key", key)
	}
}

// Set upserts a single setting value
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO platform_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.querier.Exec(ctx, query, key, value); err != nil {
		r.logger.Error("Failed to set platform setting", "key", key, "error", err)
		return fmt.Errorf("failed to set platform setting: %w", err)
	}

	return nil
}
