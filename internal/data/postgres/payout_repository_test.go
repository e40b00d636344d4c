package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investment-ledger-core/internal/domain/investment"
)

func testPayout(t *testing.T) *investment.YieldPayout {
	t.Helper()
	inv, err := investment.New(uuid.New(), uuid.New(), decimal.NewFromInt(12000), decimal.NewFromInt(10), 12, uuid.New())
	require.NoError(t, err)
	return investment.NewYieldPayout(inv, "2026-09", uuid.New())
}

func TestPayoutRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &PayoutRepository{querier: mock, logger: newTestLogger()}
		payout := testPayout(t)

		mock.ExpectExec(`INSERT INTO yield_payouts \(id, investment_id, user_id, amount, period, status, transaction_id, created_at\)`).
			WithArgs(
				payout.ID, payout.InvestmentID, payout.UserID, payout.Amount,
				payout.Period, string(payout.Status), payout.TransactionID, payout.CreatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.Create(context.Background(), payout)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicatePeriod", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &PayoutRepository{querier: mock, logger: newTestLogger()}
		payout := testPayout(t)

		mock.ExpectExec(`INSERT INTO yield_payouts`).
			WithArgs(
				payout.ID, payout.InvestmentID, payout.UserID, payout.Amount,
				payout.Period, string(payout.Status), payout.TransactionID, payout.CreatedAt,
			).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_yield_payouts_investment_period"})

		err = repo.Create(context.Background(), payout)

		var dup investment.ErrDuplicatePayout
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, payout.InvestmentID, dup.InvestmentID)
		assert.Equal(t, "2026-09", dup.Period)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &PayoutRepository{querier: mock, logger: newTestLogger()}
		payout := testPayout(t)

		mock.ExpectExec(`INSERT INTO yield_payouts`).
			WithArgs(
				payout.ID, payout.InvestmentID, payout.UserID, payout.Amount,
				payout.Period, string(payout.Status), payout.TransactionID, payout.CreatedAt,
			).
			WillReturnError(errors.New("connection reset"))

		err = repo.Create(context.Background(), payout)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create yield payout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPayoutRepository_Exists(t *testing.T) {
	t.Run("True", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &PayoutRepository{querier: mock, logger: newTestLogger()}
		investmentID := uuid.New()

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM yield_payouts WHERE investment_id = \$1 AND period = \$2\)`).
			WithArgs(investmentID, "2026-09").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.Exists(context.Background(), investmentID, "2026-09")

		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("False", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := &PayoutRepository{querier: mock, logger: newTestLogger()}
		investmentID := uuid.New()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(investmentID, "2026-10").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.Exists(context.Background(), investmentID, "2026-10")

		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
