package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/compliance"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/domain/user"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// MockTxRunner executes the unit-of-work function directly, without a real
// database transaction
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) LockForUpdate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateReview(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) SumAmountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) ListCompletedSince(ctx context.Context, since time.Time) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

type MockInvestmentRepository struct {
	mock.Mock
}

func (m *MockInvestmentRepository) Create(ctx context.Context, inv *investment.Investment) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvestmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*investment.Investment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*investment.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*investment.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) ListActiveYielding(ctx context.Context) ([]*investment.Investment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*investment.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) ListMaturedDue(ctx context.Context, now time.Time) ([]*investment.Investment, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*investment.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) MarkMatured(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvestmentRepository) AddEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockInvestmentRepository) WithTx(tx pgx.Tx) investment.Repository {
	return m
}

type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Create(ctx context.Context, payout *investment.YieldPayout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *MockPayoutRepository) Exists(ctx context.Context, investmentID uuid.UUID, period string) (bool, error) {
	args := m.Called(ctx, investmentID, period)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) WithTx(tx pgx.Tx) investment.PayoutRepository {
	return m
}

type MockComplianceRepository struct {
	mock.Mock
}

func (m *MockComplianceRepository) Create(ctx context.Context, flag *compliance.Flag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

func (m *MockComplianceRepository) GetByID(ctx context.Context, id uuid.UUID) (*compliance.Flag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Flag), args.Error(1)
}

func (m *MockComplianceRepository) Update(ctx context.Context, flag *compliance.Flag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

func (m *MockComplianceRepository) List(ctx context.Context, filter compliance.ListFilter) ([]*compliance.Flag, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*compliance.Flag), args.Error(1)
}

func (m *MockComplianceRepository) CountOpenByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockComplianceRepository) ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockComplianceRepository) WithTx(tx pgx.Tx) compliance.Repository {
	return m
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Load(ctx context.Context) (*settings.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID uuid.UUID, title, message, category string) error {
	args := m.Called(ctx, userID, title, message, category)
	return args.Error(0)
}

func (m *MockNotifier) NotifyOperators(ctx context.Context, title, message string) error {
	args := m.Called(ctx, title, message)
	return args.Error(0)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]interface{}) error {
	args := m.Called(ctx, actorID, action, resourceType, resourceID, details)
	return args.Error(0)
}

type MockAMLService struct {
	mock.Mock
}

func (m *MockAMLService) EvaluateCompleted(ctx context.Context, txn *transaction.Transaction) {
	m.Called(ctx, txn)
}

func (m *MockAMLService) ScanRecent(ctx context.Context, window time.Duration) (int, error) {
	args := m.Called(ctx, window)
	return args.Int(0), args.Error(1)
}

func (m *MockAMLService) ManualFlag(ctx context.Context, operatorID, userID uuid.UUID, severity compliance.Severity, description string) (*compliance.Flag, error) {
	args := m.Called(ctx, operatorID, userID, severity, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Flag), args.Error(1)
}

func (m *MockAMLService) UpdateFlagStatus(ctx context.Context, operatorID, flagID uuid.UUID, status compliance.Status, note string) (*compliance.Flag, error) {
	args := m.Called(ctx, operatorID, flagID, status, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Flag), args.Error(1)
}

func (m *MockAMLService) GetRiskProfile(ctx context.Context, userID uuid.UUID) (*RiskProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RiskProfile), args.Error(1)
}

func (m *MockAMLService) ListFlags(ctx context.Context, filter compliance.ListFilter) ([]*compliance.Flag, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*compliance.Flag), args.Error(1)
}
