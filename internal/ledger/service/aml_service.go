package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/compliance"
	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/domain/user"
	"github.com/shopspring/decimal"
)

// Velocity and new-account rule constants. Unlike the operator-tunable
// thresholds these are fixed by policy.
var (
	velocityHighThreshold     = decimal.NewFromInt(50000)
	velocityCriticalThreshold = decimal.NewFromInt(100000)
	newAccountAmountThreshold = decimal.NewFromInt(5000)
)

const (
	// largeSeverityMultiplier bumps a large-amount flag from medium to high
	// when the amount reaches this multiple of the threshold
	largeSeverityMultiplier = 5

	newAccountMaxAge = 7 * 24 * time.Hour
	velocityWindow   = 24 * time.Hour
)

// AMLServiceImpl implements the AMLService interface
type AMLServiceImpl struct {
	txnRepo      transaction.Repository
	flagRepo     compliance.Repository
	userRepo     user.Repository
	settingsRepo settings.Repository
	notifier     Notifier
	auditor      Auditor
	logger       *slog.Logger
}

// NewAMLService creates a new compliance rule engine
func NewAMLService(
	logger *slog.Logger,
	txnRepo transaction.Repository,
	flagRepo compliance.Repository,
	userRepo user.Repository,
	settingsRepo settings.Repository,
	notifier Notifier,
	auditor Auditor,
) AMLService {
	return &AMLServiceImpl{
		txnRepo:      txnRepo,
		flagRepo:     flagRepo,
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		auditor:      auditor,
		logger:       logger,
	}
}

// EvaluateCompleted runs every detection rule against a completed
// transaction. Errors are logged and swallowed: compliance detection is
// best-effort and must never fail the transaction it evaluates.
func (s *AMLServiceImpl) EvaluateCompleted(ctx context.Context, txn *transaction.Transaction) {
	flags, err := s.evaluate(ctx, txn)
	if err != nil {
		s.logger.Error("Compliance evaluation failed",
			"transaction_id", txn.ID.String(),
			"user_id", txn.UserID.String(),
			"error", err,
		)
		return
	}

	if len(flags) == 0 {
		return
	}

	s.persistAndAlert(ctx, txn, flags)
}

// evaluate runs the rules and returns the unsaved flags. Each rule is
// independent; one transaction can trigger several flags at once.
func (s *AMLServiceImpl) evaluate(ctx context.Context, txn *transaction.Transaction) ([]*compliance.Flag, error) {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load compliance settings: %w", err)
	}

	now := time.Now()
	var flags []*compliance.Flag

	if flag := s.checkLargeAmount(txn, cfg); flag != nil {
		flags = append(flags, flag)
	}

	rapidFlag, err := s.checkRapidTransactions(ctx, txn, cfg, now)
	if err != nil {
		return nil, err
	}
	if rapidFlag != nil {
		flags = append(flags, rapidFlag)
	}

	velocityFlag, err := s.checkVelocity(ctx, txn, now)
	if err != nil {
		return nil, err
	}
	if velocityFlag != nil {
		flags = append(flags, velocityFlag)
	}

	newAccountFlag, err := s.checkNewAccount(ctx, txn, now)
	if err != nil {
		return nil, err
	}
	if newAccountFlag != nil {
		flags = append(flags, newAccountFlag)
	}

	return flags, nil
}

// checkLargeAmount flags deposits and withdrawals at or above the
// configured threshold. Severity is high from 5x the threshold, medium
// below that.
func (s *AMLServiceImpl) checkLargeAmount(txn *transaction.Transaction, cfg *settings.Settings) *compliance.Flag {
	var threshold decimal.Decimal
	var flagType compliance.FlagType

	switch txn.Type {
	case transaction.TypeDeposit:
		threshold = cfg.LargeDepositThreshold
		flagType = compliance.FlagLargeDeposit
	case transaction.TypeWithdraw:
		threshold = cfg.LargeWithdrawalThreshold
		flagType = compliance.FlagLargeWithdrawal
	case transaction.TypeInvest, transaction.TypeYield, transaction.TypeRefund, transaction.TypeFee:
		return nil
	default:
		return nil
	}

	if threshold.Sign() <= 0 || txn.Amount.LessThan(threshold) {
		return nil
	}

	severity := compliance.SeverityMedium
	if txn.Amount.GreaterThanOrEqual(threshold.Mul(decimal.NewFromInt(largeSeverityMultiplier))) {
		severity = compliance.SeverityHigh
	}

	txnID := txn.ID
	return compliance.NewFlag(txn.UserID, &txnID, flagType, severity,
		fmt.Sprintf("%s of %s meets the %s threshold", txn.Type, txn.Amount.String(), threshold.String()))
}

// checkRapidTransactions flags users whose transaction count in the
// configured trailing window reaches the configured count
func (s *AMLServiceImpl) checkRapidTransactions(ctx context.Context, txn *transaction.Transaction, cfg *settings.Settings, now time.Time) (*compliance.Flag, error) {
	if cfg.RapidTxCount <= 0 {
		return nil, nil
	}

	since := now.Add(-time.Duration(cfg.RapidWindowMinutes) * time.Minute)
	count, err := s.txnRepo.CountByUserSince(ctx, txn.UserID, since)
	if err != nil {
		return nil, err
	}

	if count < cfg.RapidTxCount {
		return nil, nil
	}

	txnID := txn.ID
	return compliance.NewFlag(txn.UserID, &txnID, compliance.FlagRapidTransactions, compliance.SeverityMedium,
		fmt.Sprintf("%d transactions within %d minutes", count, cfg.RapidWindowMinutes)), nil
}

// checkVelocity flags users whose 24h transacted volume reaches 50,000,
// with severity critical from 100,000
func (s *AMLServiceImpl) checkVelocity(ctx context.Context, txn *transaction.Transaction, now time.Time) (*compliance.Flag, error) {
	volume, err := s.txnRepo.SumAmountByUserSince(ctx, txn.UserID, now.Add(-velocityWindow))
	if err != nil {
		return nil, err
	}

	if volume.LessThan(velocityHighThreshold) {
		return nil, nil
	}

	severity := compliance.SeverityHigh
	if volume.GreaterThanOrEqual(velocityCriticalThreshold) {
		severity = compliance.SeverityCritical
	}

	txnID := txn.ID
	return compliance.NewFlag(txn.UserID, &txnID, compliance.FlagVelocityCheck, severity,
		fmt.Sprintf("24h transaction volume of %s", volume.String())), nil
}

// checkNewAccount flags large transactions on accounts younger than a week
func (s *AMLServiceImpl) checkNewAccount(ctx context.Context, txn *transaction.Transaction, now time.Time) (*compliance.Flag, error) {
	u, err := s.userRepo.GetByID(ctx, txn.UserID)
	if err != nil {
		return nil, err
	}

	if u.AccountAge(now) >= newAccountMaxAge || txn.Amount.LessThan(newAccountAmountThreshold) {
		return nil, nil
	}

	txnID := txn.ID
	return compliance.NewFlag(txn.UserID, &txnID, compliance.FlagSuspiciousPattern, compliance.SeverityMedium,
		fmt.Sprintf("account younger than 7 days transacted %s", txn.Amount.String())), nil
}

// persistAndAlert stores every flag and, when any flag reaches high
// severity, sends a single consolidated operator alert
func (s *AMLServiceImpl) persistAndAlert(ctx context.Context, txn *transaction.Transaction, flags []*compliance.Flag) {
	var alertTypes []string
	alert := false

	for _, flag := range flags {
		if err := s.flagRepo.Create(ctx, flag); err != nil {
			s.logger.Error("Failed to persist compliance flag",
				"user_id", flag.UserID.String(),
				"flag_type", string(flag.FlagType),
				"error", err,
			)
			continue
		}

		s.logger.Info("Compliance flag raised",
			"flag_id", flag.ID.String(),
			"user_id", flag.UserID.String(),
			"flag_type", string(flag.FlagType),
			"severity", string(flag.Severity),
		)

		alertTypes = append(alertTypes, fmt.Sprintf("%s (%s)", flag.FlagType, flag.Severity))
		if flag.Severity.RequiresOperatorAlert() {
			alert = true
		}
	}

	if !alert {
		return
	}

	message := fmt.Sprintf("Transaction %s by user %s raised: %s",
		txn.ID.String(), txn.UserID.String(), strings.Join(alertTypes, ", "))
	if err := s.notifier.NotifyOperators(ctx, "Compliance alert", message); err != nil {
		s.logger.Error("Failed to notify operators", "transaction_id", txn.ID.String(), "error", err)
	}
}

// ScanRecent re-evaluates completed transactions in a trailing window,
// used for recovery and backfill when inline evaluation was missed.
// Transactions that already carry a flag are skipped. Returns how many
// transactions were evaluated.
func (s *AMLServiceImpl) ScanRecent(ctx context.Context, window time.Duration) (int, error) {
	txns, err := s.txnRepo.ListCompletedSince(ctx, time.Now().Add(-window))
	if err != nil {
		return 0, err
	}

	evaluated := 0
	for _, txn := range txns {
		flagged, err := s.flagRepo.ExistsForTransaction(ctx, txn.ID)
		if err != nil {
			s.logger.Error("Failed to check existing flags during scan", "transaction_id", txn.ID.String(), "error", err)
			continue
		}
		if flagged {
			continue
		}

		s.EvaluateCompleted(ctx, txn)
		evaluated++
	}

	return evaluated, nil
}

// ManualFlag records an operator-raised flag with no triggering transaction
func (s *AMLServiceImpl) ManualFlag(ctx context.Context, operatorID, userID uuid.UUID, severity compliance.Severity, description string) (*compliance.Flag, error) {
	flag := compliance.NewFlag(userID, nil, compliance.FlagManual, severity, description)

	if err := s.flagRepo.Create(ctx, flag); err != nil {
		return nil, err
	}

	s.logger.Info("Manual compliance flag raised",
		"flag_id", flag.ID.String(),
		"user_id", userID.String(),
		"operator_id", operatorID.String(),
		"severity", string(severity),
	)

	if err := s.auditor.Record(ctx, operatorID.String(), "compliance.manual_flag", "compliance_flag", flag.ID.String(), map[string]interface{}{
		"user_id":     userID.String(),
		"severity":    string(severity),
		"description": description,
	}); err != nil {
		s.logger.Error("Failed to record audit event", "flag_id", flag.ID.String(), "error", err)
	}

	return flag, nil
}

// UpdateFlagStatus moves a flag through its investigation lifecycle
func (s *AMLServiceImpl) UpdateFlagStatus(ctx context.Context, operatorID, flagID uuid.UUID, status compliance.Status, note string) (*compliance.Flag, error) {
	flag, err := s.flagRepo.GetByID(ctx, flagID)
	if err != nil {
		return nil, err
	}

	if err := flag.Transition(status, operatorID, note); err != nil {
		return nil, err
	}

	if err := s.flagRepo.Update(ctx, flag); err != nil {
		return nil, err
	}

	if err := s.auditor.Record(ctx, operatorID.String(), "compliance.update_flag", "compliance_flag", flag.ID.String(), map[string]interface{}{
		"status": string(status),
		"note":   note,
	}); err != nil {
		s.logger.Error("Failed to record audit event", "flag_id", flag.ID.String(), "error", err)
	}

	return flag, nil
}

// GetRiskProfile builds the aggregate risk view for a user
func (s *AMLServiceImpl) GetRiskProfile(ctx context.Context, userID uuid.UUID) (*RiskProfile, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	openFlags, err := s.flagRepo.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	volume, err := s.txnRepo.SumAmountByUserSince(ctx, userID, now.Add(-velocityWindow))
	if err != nil {
		return nil, err
	}

	return &RiskProfile{
		UserID:         userID,
		AccountAgeDays: int(u.AccountAge(now).Hours() / 24),
		OpenFlagCount:  openFlags,
		Volume24h:      volume,
	}, nil
}

// ListFlags returns compliance flags matching the filter
func (s *AMLServiceImpl) ListFlags(ctx context.Context, filter compliance.ListFilter) ([]*compliance.Flag, error) {
	return s.flagRepo.List(ctx, filter)
}
