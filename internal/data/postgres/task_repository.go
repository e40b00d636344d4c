package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/domain/schedtask"
	"github.com/investment-ledger-core/internal/platform/persistence"
)

// TaskRepository implements the schedtask.Repository interface for
// PostgreSQL. Scheduler runs are append-only audit records, so there is no
// WithTx variant: each row is written outside the money-affecting units it
// describes.
type TaskRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTaskRepository creates a new PostgreSQL scheduled task repository
func NewTaskRepository(logger *slog.Logger, db *persistence.PostgresDB) schedtask.Repository {
	return &TaskRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a new running task record
func (r *TaskRepository) Create(ctx context.Context, task *schedtask.Task) error {
	query := `
		INSERT INTO scheduled_tasks (id, task_type, status, details, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		task.ID,
		string(task.TaskType),
		string(task.Status),
		task.Details,
		task.StartedAt,
		task.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create scheduled task", "task_id", task.ID.String(), "error", err)
		return fmt.Errorf("failed to create scheduled task: %w", err)
	}

	return nil
}

// Finish stamps the run with its final status and structured summary
func (r *TaskRepository) Finish(ctx context.Context, id uuid.UUID, status schedtask.Status, details json.RawMessage) error {
	query := `
		UPDATE scheduled_tasks
		SET status = $1, details = $2, completed_at = NOW()
		WHERE id = $3 AND status = 'running'
	`

	result, err := r.querier.Exec(ctx, query, string(status), details, id)
	if err != nil {
		r.logger.Error("Failed to finish scheduled task", "task_id", id.String(), "error", err)
		return fmt.Errorf("failed to finish scheduled task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("scheduled task %s is not running", id.String())
	}

	return nil
}

// ListRecent returns the most recent scheduler runs
func (r *TaskRepository) ListRecent(ctx context.Context, limit int) ([]*schedtask.Task, error) {
	query := `
		SELECT id, task_type, status, details, started_at, completed_at
		FROM scheduled_tasks
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list scheduled tasks", "error", err)
		return nil, fmt.Errorf("failed to list scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*schedtask.Task
	for rows.Next() {
		var task schedtask.Task
		var taskType, status string
		if err := rows.Scan(&task.ID, &taskType, &status, &task.Details, &task.StartedAt, &task.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled task row: %w", err)
		}
		if task.TaskType, err = schedtask.ParseTaskType(taskType); err != nil {
			return nil, err
		}
		task.Status = schedtask.Status(status)
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading scheduled task rows: %w", err)
	}

	return tasks, nil
}
