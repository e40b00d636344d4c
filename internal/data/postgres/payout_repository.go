package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations
const pgUniqueViolation = "23505"

// PayoutRepository implements the investment.PayoutRepository interface for
// PostgreSQL
type PayoutRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPayoutRepository creates a new PostgreSQL yield payout repository
func NewPayoutRepository(logger *slog.Logger, db *persistence.PostgresDB) investment.PayoutRepository {
	return &PayoutRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *PayoutRepository) WithTx(tx pgx.Tx) investment.PayoutRepository {
	return &PayoutRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the payout record. The unique (investment_id, period) index
// is the idempotency guard: a second payout attempt for the same period
// surfaces as ErrDuplicatePayout and the caller rolls back its unit.
func (r *PayoutRepository) Create(ctx context.Context, payout *investment.YieldPayout) error {
	query := `
		INSERT INTO yield_payouts (id, investment_id, user_id, amount, period, status, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		payout.ID,
		payout.InvestmentID,
		payout.UserID,
		payout.Amount,
		payout.Period,
		string(payout.Status),
		payout.TransactionID,
		payout.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return investment.ErrDuplicatePayout{InvestmentID: payout.InvestmentID, Period: payout.Period}
		}
		r.logger.Error("Failed to create yield payout", "investment_id", payout.InvestmentID.String(), "period", payout.Period, "error", err)
		return fmt.Errorf("failed to create yield payout: %w", err)
	}

	return nil
}

// Exists reports whether a payout was already recorded for the
// (investment, period) pair
func (r *PayoutRepository) Exists(ctx context.Context, investmentID uuid.UUID, period string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM yield_payouts WHERE investment_id = $1 AND period = $2)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, investmentID, period).Scan(&exists); err != nil {
		r.logger.Error("Failed to check yield payout existence", "investment_id", investmentID.String(), "period", period, "error", err)
		return false, fmt.Errorf("failed to check yield payout existence: %w", err)
	}

	return exists, nil
}
