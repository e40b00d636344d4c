package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, type, amount, fee, net_amount, status, method, tx_hash, to_address, reviewed_by, review_note, created_at`

// TransactionRepository implements the transaction.Repository interface for
// PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, fee, net_amount, status, method, tx_hash, to_address, reviewed_by, review_note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.UserID,
		string(txn.Type),
		txn.Amount,
		txn.Fee,
		txn.NetAmount,
		string(txn.Status),
		txn.Method,
		txn.TxHash,
		txn.ToAddress,
		txn.ReviewedBy,
		txn.ReviewNote,
		txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) scanRow(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	var txType, status string
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txType,
		&txn.Amount,
		&txn.Fee,
		&txn.NetAmount,
		&status,
		&txn.Method,
		&txn.TxHash,
		&txn.ToAddress,
		&txn.ReviewedBy,
		&txn.ReviewNote,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if txn.Type, err = transaction.ParseType(txType); err != nil {
		return nil, err
	}
	if txn.Status, err = transaction.ParseStatus(status); err != nil {
		return nil, err
	}

	return &txn, nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	txn, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// LockForUpdate obtains a row lock on the transaction so concurrent reviews
// of the same record serialize
func (r *TransactionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	txn, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to lock transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	return txn, nil
}

// UpdateReview persists the outcome of an admin decision. The status guard
// in the statement rejects writes against records that already settled.
func (r *TransactionRepository) UpdateReview(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, reviewed_by = $2, review_note = $3
		WHERE id = $4 AND status IN ('pending', 'requires_approval')
	`

	result, err := r.querier.Exec(ctx, query, string(txn.Status), txn.ReviewedBy, txn.ReviewNote, txn.ID)
	if err != nil {
		r.logger.Error("Failed to update transaction review", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction review: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrAlreadyProcessed{ID: txn.ID, Status: txn.Status}
	}

	return nil
}

// List returns transactions matching the filter, newest first
func (r *TransactionRepository) List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argPos)
		args = append(args, *filter.UserID)
		argPos++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*filter.Status))
		argPos++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, string(*filter.Type))
		argPos++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return r.collectRows(rows)
}

// CountByUserSince counts a user's transactions created after the cutoff
func (r *TransactionRepository) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := r.querier.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// SumAmountByUserSince sums a user's transaction amounts created after the
// cutoff, across all transaction types
func (r *TransactionRepository) SumAmountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND created_at >= $2`

	var sum decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, userID, since).Scan(&sum); err != nil {
		r.logger.Error("Failed to sum transaction amounts", "user_id", userID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum transaction amounts: %w", err)
	}

	return sum, nil
}

// ListCompletedSince returns completed transactions in a trailing window for
// the batch compliance sweep
func (r *TransactionRepository) ListCompletedSince(ctx context.Context, since time.Time) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = 'completed' AND created_at >= $1 ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, since)
	if err != nil {
		r.logger.Error("Failed to list completed transactions", "error", err)
		return nil, fmt.Errorf("failed to list completed transactions: %w", err)
	}
	defer rows.Close()

	return r.collectRows(rows)
}

func (r *TransactionRepository) collectRows(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading transaction rows: %w", err)
	}
	return txns, nil
}
