package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type invServiceMocks struct {
	txRunner   *MockTxRunner
	invRepo    *MockInvestmentRepository
	payoutRepo *MockPayoutRepository
	txnRepo    *MockTransactionRepository
	walletRepo *MockWalletRepository
	settings   *MockSettingsRepository
	aml        *MockAMLService
	notifier   *MockNotifier
}

func newInvestmentService(t *testing.T) (*InvestmentServiceImpl, *invServiceMocks) {
	t.Helper()
	m := &invServiceMocks{
		txRunner:   new(MockTxRunner),
		invRepo:    new(MockInvestmentRepository),
		payoutRepo: new(MockPayoutRepository),
		txnRepo:    new(MockTransactionRepository),
		walletRepo: new(MockWalletRepository),
		settings:   new(MockSettingsRepository),
		aml:        new(MockAMLService),
		notifier:   new(MockNotifier),
	}
	svc, err := NewInvestmentService(newTestLogger(), m.txRunner, m.invRepo, m.payoutRepo, m.txnRepo, m.walletRepo, m.settings, m.aml, m.notifier, 4)
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)
	return svc, m
}

// seasonedInvestment returns an active investment old enough to earn yield
func seasonedInvestment(t *testing.T, principal int64, apy int64) *investment.Investment {
	t.Helper()
	inv, err := investment.New(uuid.New(), uuid.New(), decimal.NewFromInt(principal), decimal.NewFromInt(apy), 12, uuid.New())
	require.NoError(t, err)
	inv.StartDate = time.Now().Add(-45 * 24 * time.Hour)
	return inv
}

func TestInvestmentService_CreateInvestment(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	projectID := uuid.New()

	t.Run("DebitsPrincipalAndActivates", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		amount := decimal.NewFromInt(12000)

		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.walletRepo.On("Debit", ctx, userID, amount).Return(nil).Once()
		m.txnRepo.On("Create", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		m.invRepo.On("Create", ctx, mock.AnythingOfType("*investment.Investment")).Return(nil).Once()
		m.aml.On("EvaluateCompleted", ctx, mock.AnythingOfType("*transaction.Transaction")).Once()
		m.notifier.On("Notify", ctx, userID, mock.Anything, mock.Anything, "investment").Return(nil).Once()

		inv, err := svc.CreateInvestment(ctx, userID, projectID, amount, decimal.NewFromInt(10), 12)

		assert.NoError(t, err)
		assert.Equal(t, investment.StatusActive, inv.Status)
		// 12000 at 10% APY pays 100 per month
		assert.True(t, inv.MonthlyYield.Equal(decimal.NewFromInt(100)))
		assert.WithinDuration(t, inv.StartDate.AddDate(0, 12, 0), inv.MaturityDate, time.Second)
		m.walletRepo.AssertExpectations(t)
		m.invRepo.AssertExpectations(t)
	})

	t.Run("InsufficientFundsCreatesNothing", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		amount := decimal.NewFromInt(12000)

		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.walletRepo.On("Debit", ctx, userID, amount).Return(wallet.ErrInsufficientFunds).Once()

		_, err := svc.CreateInvestment(ctx, userID, projectID, amount, decimal.NewFromInt(10), 12)

		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
		m.invRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("RejectsInvalidPlan", func(t *testing.T) {
		svc, m := newInvestmentService(t)

		_, err := svc.CreateInvestment(ctx, userID, projectID, decimal.NewFromInt(1000), decimal.NewFromInt(10), 0)

		assert.ErrorIs(t, err, investment.ErrInvalidPlan)
		m.walletRepo.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInvestmentService_ProcessYieldPayouts(t *testing.T) {
	ctx := context.Background()

	t.Run("PaysEligibleSkipsPaidAndYoung", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		period := investment.PeriodOf(time.Now())

		eligible := seasonedInvestment(t, 12000, 10)
		alreadyPaid := seasonedInvestment(t, 24000, 10)
		young := seasonedInvestment(t, 6000, 10)
		young.StartDate = time.Now().Add(-5 * 24 * time.Hour)

		m.settings.On("Load", ctx).Return(settings.Defaults(), nil).Once()
		m.invRepo.On("ListActiveYielding", ctx).Return([]*investment.Investment{eligible, alreadyPaid, young}, nil).Once()

		m.payoutRepo.On("Exists", ctx, eligible.ID, period).Return(false, nil).Once()
		m.payoutRepo.On("Exists", ctx, alreadyPaid.ID, period).Return(true, nil).Once()

		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.walletRepo.On("Credit", ctx, eligible.UserID, eligible.MonthlyYield).Return(nil).Once()
		m.txnRepo.On("Create", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		m.payoutRepo.On("Create", ctx, mock.AnythingOfType("*investment.YieldPayout")).Return(nil).Once()
		m.invRepo.On("AddEarnings", ctx, eligible.ID, eligible.MonthlyYield).Return(nil).Once()
		m.notifier.On("Notify", ctx, eligible.UserID, mock.Anything, mock.Anything, "investment").Return(nil).Once()

		summary, err := svc.ProcessYieldPayouts(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, 2, summary.Skipped)
		assert.Equal(t, 0, summary.Failed)
		m.payoutRepo.AssertExpectations(t)
		m.walletRepo.AssertExpectations(t)
	})

	t.Run("DuplicatePayoutCountsAsSkip", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		period := investment.PeriodOf(time.Now())
		inv := seasonedInvestment(t, 12000, 10)

		m.settings.On("Load", ctx).Return(settings.Defaults(), nil).Once()
		m.invRepo.On("ListActiveYielding", ctx).Return([]*investment.Investment{inv}, nil).Once()
		m.payoutRepo.On("Exists", ctx, inv.ID, period).Return(false, nil).Once()

		// the unique index wins the race inside the unit of work
		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.walletRepo.On("Credit", ctx, inv.UserID, inv.MonthlyYield).Return(nil).Once()
		m.txnRepo.On("Create", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		m.payoutRepo.On("Create", ctx, mock.AnythingOfType("*investment.YieldPayout")).
			Return(investment.ErrDuplicatePayout{InvestmentID: inv.ID, Period: period}).Once()

		summary, err := svc.ProcessYieldPayouts(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, summary.Processed)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 0, summary.Failed)
		m.invRepo.AssertNotCalled(t, "AddEarnings", mock.Anything, mock.Anything, mock.Anything)
		m.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DisabledByPlatformSetting", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		cfg := settings.Defaults()
		cfg.YieldPayoutsEnabled = false

		m.settings.On("Load", ctx).Return(cfg, nil).Once()

		summary, err := svc.ProcessYieldPayouts(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, summary.Total)
		m.invRepo.AssertNotCalled(t, "ListActiveYielding", mock.Anything)
	})

	t.Run("OneFailureDoesNotStopTheSweep", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		period := investment.PeriodOf(time.Now())
		broken := seasonedInvestment(t, 12000, 10)
		healthy := seasonedInvestment(t, 24000, 10)

		m.settings.On("Load", ctx).Return(settings.Defaults(), nil).Once()
		m.invRepo.On("ListActiveYielding", ctx).Return([]*investment.Investment{broken, healthy}, nil).Once()

		m.payoutRepo.On("Exists", ctx, broken.ID, period).Return(false, assert.AnError).Once()
		m.payoutRepo.On("Exists", ctx, healthy.ID, period).Return(false, nil).Once()

		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.walletRepo.On("Credit", ctx, healthy.UserID, healthy.MonthlyYield).Return(nil).Once()
		m.txnRepo.On("Create", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		m.payoutRepo.On("Create", ctx, mock.AnythingOfType("*investment.YieldPayout")).Return(nil).Once()
		m.invRepo.On("AddEarnings", ctx, healthy.ID, healthy.MonthlyYield).Return(nil).Once()
		m.notifier.On("Notify", ctx, healthy.UserID, mock.Anything, mock.Anything, "investment").Return(nil).Once()

		summary, err := svc.ProcessYieldPayouts(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, 1, summary.Failed)
		assert.Len(t, summary.Errors, 1)
	})
}

func TestInvestmentService_CheckMaturities(t *testing.T) {
	ctx := context.Background()

	t.Run("SettlesMaturedInvestment", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		inv := seasonedInvestment(t, 12000, 10)
		inv.MaturityDate = time.Now().Add(-time.Hour)

		m.invRepo.On("ListMaturedDue", ctx, mock.Anything).Return([]*investment.Investment{inv}, nil).Once()
		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.invRepo.On("MarkMatured", ctx, inv.ID).Return(nil).Once()
		m.walletRepo.On("Credit", ctx, inv.UserID, inv.Amount).Return(nil).Once()

		var refund *transaction.Transaction
		m.txnRepo.On("Create", ctx, mock.AnythingOfType("*transaction.Transaction")).Run(func(args mock.Arguments) {
			refund = args.Get(1).(*transaction.Transaction)
		}).Return(nil).Once()
		m.notifier.On("Notify", ctx, inv.UserID, mock.Anything, mock.Anything, "investment").Return(nil).Once()

		summary, err := svc.CheckMaturities(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Processed)
		require.NotNil(t, refund)
		assert.Equal(t, transaction.TypeRefund, refund.Type)
		assert.True(t, refund.Amount.Equal(inv.Amount))
		assert.Equal(t, transaction.StatusCompleted, refund.Status)
	})

	t.Run("AlreadySettledCountsAsSkip", func(t *testing.T) {
		svc, m := newInvestmentService(t)
		inv := seasonedInvestment(t, 12000, 10)
		inv.MaturityDate = time.Now().Add(-time.Hour)

		m.invRepo.On("ListMaturedDue", ctx, mock.Anything).Return([]*investment.Investment{inv}, nil).Once()
		m.txRunner.On("ExecuteTx", ctx).Return(nil).Once()
		m.invRepo.On("MarkMatured", ctx, inv.ID).Return(investment.ErrNotActive{ID: inv.ID}).Once()

		summary, err := svc.CheckMaturities(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, summary.Processed)
		assert.Equal(t, 1, summary.Skipped)
		m.walletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
		m.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
