package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/compliance"
	"github.com/investment-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const flagColumns = `id, user_id, transaction_id, flag_type, severity, status, description, resolution_note, resolved_by, created_at`

// ComplianceRepository implements the compliance.Repository interface for
// PostgreSQL
type ComplianceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewComplianceRepository creates a new PostgreSQL compliance flag repository
func NewComplianceRepository(logger *slog.Logger, db *persistence.PostgresDB) compliance.Repository {
	return &ComplianceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *ComplianceRepository) WithTx(tx pgx.Tx) compliance.Repository {
	return &ComplianceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new compliance flag
func (r *ComplianceRepository) Create(ctx context.Context, flag *compliance.Flag) error {
	query := `
		INSERT INTO compliance_flags (id, user_id, transaction_id, flag_type, severity, status, description, resolution_note, resolved_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		flag.ID,
		flag.UserID,
		flag.TransactionID,
		string(flag.FlagType),
		string(flag.Severity),
		string(flag.Status),
		flag.Description,
		flag.ResolutionNote,
		flag.ResolvedBy,
		flag.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create compliance flag", "flag_id", flag.ID.String(), "error", err)
		return fmt.Errorf("failed to create compliance flag: %w", err)
	}

	return nil
}

func (r *ComplianceRepository) scanRow(row pgx.Row) (*compliance.Flag, error) {
	var flag compliance.Flag
	var flagType, severity, status string
	err := row.Scan(
		&flag.ID,
		&flag.UserID,
		&flag.TransactionID,
		&flagType,
		&severity,
		&status,
		&flag.Description,
		&flag.ResolutionNote,
		&flag.ResolvedBy,
		&flag.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if flag.FlagType, err = compliance.ParseFlagType(flagType); err != nil {
		return nil, err
	}
	if flag.Severity, err = compliance.ParseSeverity(severity); err != nil {
		return nil, err
	}
	if flag.Status, err = compliance.ParseStatus(status); err != nil {
		return nil, err
	}

	return &flag, nil
}

// GetByID retrieves a compliance flag by its ID
func (r *ComplianceRepository) GetByID(ctx context.Context, id uuid.UUID) (*compliance.Flag, error) {
	query := `SELECT ` + flagColumns + ` FROM compliance_flags WHERE id = $1`

	flag, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, compliance.ErrFlagNotFound{ID: id}
		}
		r.logger.Error("Failed to get compliance flag", "flag_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get compliance flag: %w", err)
	}

	return flag, nil
}

// Update persists lifecycle changes to a flag
func (r *ComplianceRepository) Update(ctx context.Context, flag *compliance.Flag) error {
	query := `
		UPDATE compliance_flags
		SET status = $1, resolution_note = $2, resolved_by = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, string(flag.Status), flag.ResolutionNote, flag.ResolvedBy, flag.ID)
	if err != nil {
		r.logger.Error("Failed to update compliance flag", "flag_id", flag.ID.String(), "error", err)
		return fmt.Errorf("failed to update compliance flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return compliance.ErrFlagNotFound{ID: flag.ID}
	}

	return nil
}

// List returns compliance flags matching the filter, newest first
func (r *ComplianceRepository) List(ctx context.Context, filter compliance.ListFilter) ([]*compliance.Flag, error) {
	query := `SELECT ` + flagColumns + ` FROM compliance_flags WHERE 1=1`
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
	if filter.Severity != nil {
		query += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, string(*filter.Severity))
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
		r.logger.Error("Failed to list compliance flags", "error", err)
		return nil, fmt.Errorf("failed to list compliance flags: %w", err)
	}
	defer rows.Close()

	var flags []*compliance.Flag
	for rows.Next() {
		flag, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance flag row: %w", err)
		}
		flags = append(flags, flag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading compliance flag rows: %w", err)
	}

	return flags, nil
}

// CountOpenByUser counts a user's non-terminal flags
func (r *ComplianceRepository) CountOpenByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM compliance_flags WHERE user_id = $1 AND status NOT IN ('resolved', 'dismissed')`

	var count int
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count open compliance flags", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count open compliance flags: %w", err)
	}

	return count, nil
}

// ExistsForTransaction reports whether any flag already references the
// transaction
func (r *ComplianceRepository) ExistsForTransaction(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM compliance_flags WHERE transaction_id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, transactionID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check compliance flag existence", "transaction_id", transactionID.String(), "error", err)
		return false, fmt.Errorf("failed to check compliance flag existence: %w", err)
	}

	return exists, nil
}
