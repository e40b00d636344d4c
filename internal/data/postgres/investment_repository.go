package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const investmentColumns = `id, user_id, project_id, amount, apy, term_months, monthly_yield, total_earned, status, start_date, maturity_date, transaction_id`

// InvestmentRepository implements the investment.Repository interface for
// PostgreSQL
type InvestmentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewInvestmentRepository creates a new PostgreSQL investment repository
func NewInvestmentRepository(logger *slog.Logger, db *persistence.PostgresDB) investment.Repository {
	return &InvestmentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *InvestmentRepository) WithTx(tx pgx.Tx) investment.Repository {
	return &InvestmentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new investment
func (r *InvestmentRepository) Create(ctx context.Context, inv *investment.Investment) error {
	query := `
		INSERT INTO investments (id, user_id, project_id, amount, apy, term_months, monthly_yield, total_earned, status, start_date, maturity_date, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		inv.ID,
		inv.UserID,
		inv.ProjectID,
		inv.Amount,
		inv.APY,
		inv.TermMonths,
		inv.MonthlyYield,
		inv.TotalEarned,
		string(inv.Status),
		inv.StartDate,
		inv.MaturityDate,
		inv.TransactionID,
	)
	if err != nil {
		r.logger.Error("Failed to create investment", "investment_id", inv.ID.String(), "error", err)
		return fmt.Errorf("failed to create investment: %w", err)
	}

	return nil
}

func (r *InvestmentRepository) scanRow(row pgx.Row) (*investment.Investment, error) {
	var inv investment.Investment
	var status string
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.ProjectID,
		&inv.Amount,
		&inv.APY,
		&inv.TermMonths,
		&inv.MonthlyYield,
		&inv.TotalEarned,
		&status,
		&inv.StartDate,
		&inv.MaturityDate,
		&inv.TransactionID,
	)
	if err != nil {
		return nil, err
	}

	if inv.Status, err = investment.ParseStatus(status); err != nil {
		return nil, err
	}

	return &inv, nil
}

// GetByID retrieves an investment by its ID
func (r *InvestmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*investment.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`

	inv, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, investment.ErrInvestmentNotFound{ID: id}
		}
		r.logger.Error("Failed to get investment", "investment_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}

	return inv, nil
}

// ListByUser returns a user's investments, newest first
func (r *InvestmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = $1 ORDER BY start_date DESC`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list investments", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	return r.collectRows(rows)
}

// ListActiveYielding returns active investments with a positive monthly
// yield, the candidate set for the payout sweep
func (r *InvestmentRepository) ListActiveYielding(ctx context.Context) ([]*investment.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE status = 'active' AND monthly_yield > 0 ORDER BY start_date ASC`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list yielding investments", "error", err)
		return nil, fmt.Errorf("failed to list yielding investments: %w", err)
	}
	defer rows.Close()

	return r.collectRows(rows)
}

// ListMaturedDue returns active investments whose maturity date has passed
func (r *InvestmentRepository) ListMaturedDue(ctx context.Context, now time.Time) ([]*investment.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE status = 'active' AND maturity_date <= $1 ORDER BY maturity_date ASC`

	rows, err := r.querier.Query(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to list matured investments", "error", err)
		return nil, fmt.Errorf("failed to list matured investments: %w", err)
	}
	defer rows.Close()

	return r.collectRows(rows)
}

// MarkMatured flips an active investment to matured. The status guard makes
// the transition happen at most once even across concurrent sweeps.
func (r *InvestmentRepository) MarkMatured(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE investments SET status = 'matured' WHERE id = $1 AND status = 'active'`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark investment matured", "investment_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark investment matured: %w", err)
	}

	if result.RowsAffected() == 0 {
		return investment.ErrNotActive{ID: id}
	}

	return nil
}

// AddEarnings increments the total_earned accumulator
func (r *InvestmentRepository) AddEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE investments SET total_earned = total_earned + $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, amount, id)
	if err != nil {
		r.logger.Error("Failed to add investment earnings", "investment_id", id.String(), "error", err)
		return fmt.Errorf("failed to add investment earnings: %w", err)
	}

	if result.RowsAffected() == 0 {
		return investment.ErrInvestmentNotFound{ID: id}
	}

	return nil
}

func (r *InvestmentRepository) collectRows(rows pgx.Rows) ([]*investment.Investment, error) {
	var invs []*investment.Investment
	for rows.Next() {
		inv, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment row: %w", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading investment rows: %w", err)
	}
	return invs, nil
}
