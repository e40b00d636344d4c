package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	txRunner     persistence.TxRunner
	txnRepo      transaction.Repository
	walletRepo   wallet.Repository
	settingsRepo settings.Repository
	aml          AMLService
	notifier     Notifier
	auditor      Auditor
	logger       *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	txnRepo transaction.Repository,
	walletRepo wallet.Repository,
	settingsRepo settings.Repository,
	aml AMLService,
	notifier Notifier,
	auditor Auditor,
) TransactionService {
	return &TransactionServiceImpl{
		txRunner:     txRunner,
		txnRepo:      txnRepo,
		walletRepo:   walletRepo,
		settingsRepo: settingsRepo,
		aml:          aml,
		notifier:     notifier,
		auditor:      auditor,
		logger:       logger,
	}
}

// RequestDeposit records a deposit request. Deposits auto-complete (and
// credit the wallet immediately) unless the approval threshold routes them
// to manual review.
func (s *TransactionServiceImpl) RequestDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method string) (*transaction.Transaction, error) {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	status := transaction.StatusCompleted
	if cfg.DepositApprovalThreshold.Sign() > 0 && amount.GreaterThanOrEqual(cfg.DepositApprovalThreshold) {
		status = transaction.StatusRequiresApproval
	}

	txn, err := transaction.NewUserInitiated(userID, transaction.TypeDeposit, amount, decimal.Zero, method, status)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.txnRepo.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		if txn.Status == transaction.StatusCompleted {
			return s.walletRepo.WithTx(tx).Credit(ctx, userID, txn.NetAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deposit requested",
		"transaction_id", txn.ID.String(),
		"user_id", userID.String(),
		"amount", amount.String(),
		"status", string(txn.Status),
	)

	if txn.Status == transaction.StatusCompleted {
		s.aml.EvaluateCompleted(ctx, txn)
		s.notifyUser(ctx, userID, "Deposit completed",
			fmt.Sprintf("Your deposit of %s has been credited to your wallet.", txn.NetAmount.String()))
	} else {
		s.notifyUser(ctx, userID, "Deposit pending review",
			fmt.Sprintf("Your deposit of %s is awaiting review.", amount.String()))
	}

	return txn, nil
}

// RequestWithdrawal records a withdrawal request. The full amount is
// debited from the wallet at request time (the hold), so funds earmarked
// for withdrawal cannot be spent while approval is pending. Rejection
// reverses the hold; approval changes nothing further on the balance.
func (s *TransactionServiceImpl) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method, toAddress string) (*transaction.Transaction, error) {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	fee := amount.Mul(cfg.WithdrawalFeePercent).Div(decimal.NewFromInt(100))

	status := transaction.StatusRequiresApproval
	if cfg.AutoApproveWithdrawals {
		status = transaction.StatusCompleted
	}

	txn, err := transaction.NewUserInitiated(userID, transaction.TypeWithdraw, amount, fee, method, status)
	if err != nil {
		return nil, err
	}
	txn.ToAddress = toAddress

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.walletRepo.WithTx(tx).Debit(ctx, userID, amount); err != nil {
			return err
		}
		return s.txnRepo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		"transaction_id", txn.ID.String(),
		"user_id", userID.String(),
		"amount", amount.String(),
		"fee", fee.String(),
		"status", string(txn.Status),
	)

	if txn.Status == transaction.StatusCompleted {
		s.aml.EvaluateCompleted(ctx, txn)
		s.notifyUser(ctx, userID, "Withdrawal completed",
			fmt.Sprintf("Your withdrawal of %s has been processed.", amount.String()))
	} else {
		s.notifyUser(ctx, userID, "Withdrawal pending review",
			fmt.Sprintf("Your withdrawal of %s is awaiting review. The amount has been reserved from your balance.", amount.String()))
	}

	return txn, nil
}

// Approve settles a pending transaction as completed, applying its balance
// side effect in the same unit of work. Deposits credit the net amount
// (creating the wallet if absent); withdrawals change nothing because the
// hold was taken at request time.
func (s *TransactionServiceImpl) Approve(ctx context.Context, adminID, transactionID uuid.UUID, note string) (*transaction.Transaction, error) {
	var approved *transaction.Transaction

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txnRepo := s.txnRepo.WithTx(tx)

		txn, err := txnRepo.LockForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}

		if err := txn.Review(transaction.StatusCompleted, adminID, note); err != nil {
			return err
		}

		switch txn.Type {
		case transaction.TypeDeposit:
			if err := s.walletRepo.WithTx(tx).Credit(ctx, txn.UserID, txn.NetAmount); err != nil {
				return err
			}
		case transaction.TypeWithdraw:
			// amount already held at request time
		case transaction.TypeInvest, transaction.TypeYield, transaction.TypeRefund, transaction.TypeFee:
			return transaction.ErrAlreadyProcessed{ID: txn.ID, Status: txn.Status}
		}

		if err := txnRepo.UpdateReview(ctx, txn); err != nil {
			return err
		}

		approved = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction approved",
		"transaction_id", approved.ID.String(),
		"type", string(approved.Type),
		"admin_id", adminID.String(),
	)

	s.aml.EvaluateCompleted(ctx, approved)
	s.notifyUser(ctx, approved.UserID,
		fmt.Sprintf("%s approved", titleFor(approved.Type)),
		fmt.Sprintf("Your %s of %s has been approved.", approved.Type, approved.Amount.String()))
	s.audit(ctx, adminID, "transaction.approve", approved.ID, map[string]interface{}{
		"type":   string(approved.Type),
		"amount": approved.Amount.String(),
		"note":   note,
	})

	return approved, nil
}

// Reject cancels a pending transaction. A rejected withdrawal re-credits
// the originally held amount, restoring the balance to its pre-request
// value; a rejected deposit touches nothing because nothing was applied.
func (s *TransactionServiceImpl) Reject(ctx context.Context, adminID, transactionID uuid.UUID, note string) (*transaction.Transaction, error) {
	var rejected *transaction.Transaction

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txnRepo := s.txnRepo.WithTx(tx)

		txn, err := txnRepo.LockForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}

		if err := txn.Review(transaction.StatusCancelled, adminID, note); err != nil {
			return err
		}

		switch txn.Type {
		case transaction.TypeWithdraw:
			if err := s.walletRepo.WithTx(tx).Credit(ctx, txn.UserID, txn.Amount); err != nil {
				return err
			}
		case transaction.TypeDeposit:
			// no balance effect was ever applied
		case transaction.TypeInvest, transaction.TypeYield, transaction.TypeRefund, transaction.TypeFee:
			return transaction.ErrAlreadyProcessed{ID: txn.ID, Status: txn.Status}
		}

		if err := txnRepo.UpdateReview(ctx, txn); err != nil {
			return err
		}

		rejected = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction rejected",
		"transaction_id", rejected.ID.String(),
		"type", string(rejected.Type),
		"admin_id", adminID.String(),
	)

	s.notifyUser(ctx, rejected.UserID,
		fmt.Sprintf("%s rejected", titleFor(rejected.Type)),
		fmt.Sprintf("Your %s of %s was rejected: %s", rejected.Type, rejected.Amount.String(), note))
	s.audit(ctx, adminID, "transaction.reject", rejected.ID, map[string]interface{}{
		"type":   string(rejected.Type),
		"amount": rejected.Amount.String(),
		"note":   note,
	})

	return rejected, nil
}

// GetByID retrieves a transaction by its ID
func (s *TransactionServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return s.txnRepo.GetByID(ctx, id)
}

// List returns transactions matching the filter
func (s *TransactionServiceImpl) List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	return s.txnRepo.List(ctx, filter)
}

func (s *TransactionServiceImpl) notifyUser(ctx context.Context, userID uuid.UUID, title, message string) {
	if err := s.notifier.Notify(ctx, userID, title, message, "transaction"); err != nil {
		s.logger.Error("Failed to send notification", "user_id", userID.String(), "error", err)
	}
}

func (s *TransactionServiceImpl) audit(ctx context.Context, actorID uuid.UUID, action string, resourceID uuid.UUID, details map[string]interface{}) {
	if err := s.auditor.Record(ctx, actorID.String(), action, "transaction", resourceID.String(), details); err != nil {
		s.logger.Error("Failed to record audit event", "action", action, "error", err)
	}
}

func titleFor(txType transaction.Type) string {
	switch txType {
	case transaction.TypeDeposit:
		return "Deposit"
	case transaction.TypeWithdraw:
		return "Withdrawal"
	case transaction.TypeInvest:
		return "Investment"
	case transaction.TypeYield:
		return "Yield payout"
	case transaction.TypeRefund:
		return "Refund"
	case transaction.TypeFee:
		return "Fee"
	}
	return "Transaction"
}
