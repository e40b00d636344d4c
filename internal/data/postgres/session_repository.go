package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/investment-ledger-core/internal/platform/persistence"
)

// SessionRepository deletes expired session rows on behalf of the
// scheduler's cleanup task. Session issuance lives with the auth provider;
// the ledger core only prunes.
type SessionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(logger *slog.Logger, db *persistence.PostgresDB) *SessionRepository {
	return &SessionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// DeleteExpired removes sessions whose expiry has passed and returns how
// many rows were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= $1`

	result, err := r.querier.Exec(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to delete expired sessions", "error", err)
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
