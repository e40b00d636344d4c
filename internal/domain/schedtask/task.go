package schedtask

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskType identifies which scheduler routine a run belongs to
type TaskType string

const (
	TypeYieldPayout    TaskType = "yield_payout"
	TypeMaturityCheck  TaskType = "maturity_check"
	TypeAMLScan        TaskType = "aml_scan"
	TypeSessionCleanup TaskType = "session_cleanup"
)

// ParseTaskType validates a raw task type string
func ParseTaskType(raw string) (TaskType, error) {
	switch t := TaskType(raw); t {
	case TypeYieldPayout, TypeMaturityCheck, TypeAMLScan, TypeSessionCleanup:
		return t, nil
	default:
		return "", fmt.Errorf("unknown task type: %q", raw)
	}
}

// Status defines scheduler run states
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is the append-only audit record of one scheduler run
type Task struct {
	ID          uuid.UUID       `json:"id"`
	TaskType    TaskType        `json:"task_type"`
	Status      Status          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewRun creates a running task record starting now
func NewRun(taskType TaskType) *Task {
	return &Task{
		ID:        uuid.New(),
		TaskType:  taskType,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
}

// Repository defines scheduled task persistence operations. Rows are written
// once per run and never mutated after completion.
type Repository interface {
	Create(ctx context.Context, task *Task) error

	// Finish stamps the run with its final status and structured summary
	Finish(ctx context.Context, id uuid.UUID, status Status, details json.RawMessage) error

	ListRecent(ctx context.Context, limit int) ([]*Task, error)
}
