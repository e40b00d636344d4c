package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

// InvestmentServiceImpl implements the InvestmentService interface. Sweep
// items run on a bounded worker pool; each item is its own atomic unit so
// one investment's failure never aborts the others.
type InvestmentServiceImpl struct {
	txRunner     persistence.TxRunner
	invRepo      investment.Repository
	payoutRepo   investment.PayoutRepository
	txnRepo      transaction.Repository
	walletRepo   wallet.Repository
	settingsRepo settings.Repository
	aml          AMLService
	notifier     Notifier
	pool         *ants.Pool
	logger       *slog.Logger
}

// NewInvestmentService creates a new investment lifecycle manager with a
// worker pool of the given size for sweep processing
func NewInvestmentService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	invRepo investment.Repository,
	payoutRepo investment.PayoutRepository,
	txnRepo transaction.Repository,
	walletRepo wallet.Repository,
	settingsRepo settings.Repository,
	aml AMLService,
	notifier Notifier,
	poolSize int,
) (*InvestmentServiceImpl, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &InvestmentServiceImpl{
		txRunner:     txRunner,
		invRepo:      invRepo,
		payoutRepo:   payoutRepo,
		txnRepo:      txnRepo,
		walletRepo:   walletRepo,
		settingsRepo: settingsRepo,
		aml:          aml,
		notifier:     notifier,
		pool:         pool,
		logger:       logger,
	}, nil
}

// Shutdown releases the worker pool
func (s *InvestmentServiceImpl) Shutdown() {
	s.pool.Release()
}

// CreateInvestment commits principal into a project plan: the wallet debit,
// the completed invest transaction and the active investment row are one
// atomic unit. An insufficient balance aborts the whole operation with
// nothing created.
func (s *InvestmentServiceImpl) CreateInvestment(ctx context.Context, userID, projectID uuid.UUID, amount, apy decimal.Decimal, termMonths int) (*investment.Investment, error) {
	txn, err := transaction.NewSystemInitiated(userID, transaction.TypeInvest, amount, "wallet")
	if err != nil {
		return nil, err
	}

	inv, err := investment.New(userID, projectID, amount, apy, termMonths, txn.ID)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.walletRepo.WithTx(tx).Debit(ctx, userID, amount); err != nil {
			return err
		}
		if err := s.txnRepo.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		return s.invRepo.WithTx(tx).Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Investment created",
		"investment_id", inv.ID.String(),
		"user_id", userID.String(),
		"amount", amount.String(),
		"apy", apy.String(),
		"term_months", termMonths,
		"monthly_yield", inv.MonthlyYield.String(),
	)

	s.aml.EvaluateCompleted(ctx, txn)
	s.notify(ctx, userID, "Investment created",
		fmt.Sprintf("You invested %s at %s%% APY for %d months.", amount.String(), apy.String(), termMonths))

	return inv, nil
}

// GetByID retrieves an investment by its ID
func (s *InvestmentServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*investment.Investment, error) {
	return s.invRepo.GetByID(ctx, id)
}

// ListByUser returns a user's investments
func (s *InvestmentServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error) {
	return s.invRepo.ListByUser(ctx, userID)
}

// ProcessYieldPayouts pays the monthly yield for every eligible active
// investment. The (investment, period) uniqueness guard makes the sweep
// idempotent: re-running it in the same period is a no-op.
func (s *InvestmentServiceImpl) ProcessYieldPayouts(ctx context.Context) (*SweepSummary, error) {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.YieldPayoutsEnabled {
		s.logger.Info("Yield payouts disabled, skipping sweep")
		return &SweepSummary{}, nil
	}

	investments, err := s.invRepo.ListActiveYielding(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	period := investment.PeriodOf(now)

	return s.sweep(ctx, investments, func(ctx context.Context, inv *investment.Investment) (bool, error) {
		return s.payoutOne(ctx, inv, now, period)
	}), nil
}

// payoutOne pays one investment's yield for the period as a single atomic
// unit. Returns false when skipped (not yet eligible or already paid).
func (s *InvestmentServiceImpl) payoutOne(ctx context.Context, inv *investment.Investment, now time.Time, period string) (bool, error) {
	if !inv.EligibleForYieldAt(now) {
		return false, nil
	}

	exists, err := s.payoutRepo.Exists(ctx, inv.ID, period)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	txn, err := transaction.NewSystemInitiated(inv.UserID, transaction.TypeYield, inv.MonthlyYield, "yield")
	if err != nil {
		return false, err
	}
	payout := investment.NewYieldPayout(inv, period, txn.ID)

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.walletRepo.WithTx(tx).Credit(ctx, inv.UserID, inv.MonthlyYield); err != nil {
			return err
		}
		if err := s.txnRepo.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		if err := s.payoutRepo.WithTx(tx).Create(ctx, payout); err != nil {
			return err
		}
		return s.invRepo.WithTx(tx).AddEarnings(ctx, inv.ID, inv.MonthlyYield)
	})
	if err != nil {
		// A concurrent or earlier payout for the same period is a skip,
		// not a failure
		var dup investment.ErrDuplicatePayout
		if errors.As(err, &dup) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("Yield payout credited",
		"investment_id", inv.ID.String(),
		"user_id", inv.UserID.String(),
		"amount", inv.MonthlyYield.String(),
		"period", period,
	)

	s.notify(ctx, inv.UserID, "Yield credited",
		fmt.Sprintf("Your investment earned %s for %s.", inv.MonthlyYield.String(), period))

	return true, nil
}

// CheckMaturities settles every active investment whose term has ended:
// the status flip, principal refund and refund transaction are one atomic
// unit per investment. A matured investment is excluded from the next
// sweep, so settlement happens exactly once.
func (s *InvestmentServiceImpl) CheckMaturities(ctx context.Context) (*SweepSummary, error) {
	now := time.Now()
	investments, err := s.invRepo.ListMaturedDue(ctx, now)
	if err != nil {
		return nil, err
	}

	return s.sweep(ctx, investments, s.matureOne), nil
}

// matureOne settles one matured investment. Returns false when another
// writer already settled it.
func (s *InvestmentServiceImpl) matureOne(ctx context.Context, inv *investment.Investment) (bool, error) {
	txn, err := transaction.NewSystemInitiated(inv.UserID, transaction.TypeRefund, inv.Amount, "maturity")
	if err != nil {
		return false, err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.invRepo.WithTx(tx).MarkMatured(ctx, inv.ID); err != nil {
			return err
		}
		if err := s.walletRepo.WithTx(tx).Credit(ctx, inv.UserID, inv.Amount); err != nil {
			return err
		}
		return s.txnRepo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		var notActive investment.ErrNotActive
		if errors.As(err, &notActive) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("Investment matured",
		"investment_id", inv.ID.String(),
		"user_id", inv.UserID.String(),
		"principal", inv.Amount.String(),
	)

	s.notify(ctx, inv.UserID, "Investment matured",
		fmt.Sprintf("Your investment of %s has matured and the principal was returned to your wallet.", inv.Amount.String()))

	return true, nil
}

// sweep runs fn over every investment on the worker pool, isolating
// failures per item and collecting a summary
func (s *InvestmentServiceImpl) sweep(ctx context.Context, investments []*investment.Investment, fn func(context.Context, *investment.Investment) (bool, error)) *SweepSummary {
	summary := &SweepSummary{Total: len(investments)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, inv := range investments {
		inv := inv
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()

			processed, err := fn(ctx, inv)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", inv.ID.String(), err))
				s.logger.Error("Sweep item failed", "investment_id", inv.ID.String(), "error", err)
			case processed:
				summary.Processed++
			default:
				summary.Skipped++
			}
		}); err != nil {
			wg.Done()
			mu.Lock()
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", inv.ID.String(), err))
			mu.Unlock()
		}
	}

	wg.Wait()
	return summary
}

func (s *InvestmentServiceImpl) notify(ctx context.Context, userID uuid.UUID, title, message string) {
	if err := s.notifier.Notify(ctx, userID, title, message, "investment"); err != nil {
		s.logger.Error("Failed to send notification", "user_id", userID.String(), "error", err)
	}
}
