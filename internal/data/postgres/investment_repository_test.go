package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investment-ledger-core/internal/domain/investment"
)

func testInvestment(t *testing.T) *investment.Investment {
	t.Helper()
	inv, err := investment.New(uuid.New(), uuid.New(), decimal.NewFromInt(12000), decimal.NewFromInt(10), 12, uuid.New())
	require.NoError(t, err)
	return inv
}

func investmentRow(inv *investment.Investment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "project_id", "amount", "apy", "term_months",
		"monthly_yield", "total_earned", "status", "start_date", "maturity_date", "transaction_id",
	}).AddRow(
		inv.ID, inv.UserID, inv.ProjectID, inv.Amount, inv.APY, inv.TermMonths,
		inv.MonthlyYield, inv.TotalEarned, string(inv.Status), inv.StartDate,
		inv.MaturityDate, inv.TransactionID,
	)
}

func TestInvestmentRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
	inv := testInvestment(t)

	mock.ExpectExec(`INSERT INTO investments \(id, user_id, project_id, amount, apy, term_months, monthly_yield, total_earned, status, start_date, maturity_date, transaction_id\)`).
		WithArgs(
			inv.ID, inv.UserID, inv.ProjectID, inv.Amount, inv.APY, inv.TermMonths,
			inv.MonthlyYield, inv.TotalEarned, string(inv.Status), inv.StartDate,
			inv.MaturityDate, inv.TransactionID,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), inv)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvestmentRepository_GetByID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
		inv := testInvestment(t)

		mock.ExpectQuery(`SELECT .* FROM investments WHERE id = \$1`).
			WithArgs(inv.ID).
			WillReturnRows(investmentRow(inv))

		got, err := repo.GetByID(context.Background(), inv.ID)

		require.NoError(t, err)
		assert.Equal(t, inv.ID, got.ID)
		assert.Equal(t, investment.StatusActive, got.Status)
		assert.True(t, got.MonthlyYield.Equal(inv.MonthlyYield))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}

		id := uuid.New()
		mock.ExpectQuery(`SELECT .* FROM investments WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetByID(context.Background(), id)

		var notFound investment.ErrInvestmentNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, id, notFound.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvestmentRepository_ListMaturedDue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
	inv := testInvestment(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM investments WHERE status = 'active' AND maturity_date <= \$1 ORDER BY maturity_date ASC`).
		WithArgs(now).
		WillReturnRows(investmentRow(inv))

	got, err := repo.ListMaturedDue(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inv.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvestmentRepository_MarkMatured(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
		id := uuid.New()

		mock.ExpectExec(`UPDATE investments SET status = 'matured' WHERE id = \$1 AND status = 'active'`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.MarkMatured(context.Background(), id)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotActive", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
		id := uuid.New()

		mock.ExpectExec(`UPDATE investments SET status = 'matured'`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.MarkMatured(context.Background(), id)

		var notActive investment.ErrNotActive
		require.ErrorAs(t, err, &notActive)
		assert.Equal(t, id, notActive.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvestmentRepository_AddEarnings(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
		id := uuid.New()
		amount := decimal.NewFromInt(100)

		mock.ExpectExec(`UPDATE investments SET total_earned = total_earned \+ \$1 WHERE id = \$2`).
			WithArgs(amount, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.AddEarnings(context.Background(), id, amount)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingInvestment", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &InvestmentRepository{querier: mock, logger: newTestLogger()}
		id := uuid.New()

		mock.ExpectExec(`UPDATE investments SET total_earned`).
			WithArgs(decimal.NewFromInt(50), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.AddEarnings(context.Background(), id, decimal.NewFromInt(50))

		var notFound investment.ErrInvestmentNotFound
		require.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
