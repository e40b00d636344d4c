// Package scheduler runs the hourly maintenance routines: session cleanup,
// maturity settlement, yield payouts and the compliance re-scan. Every run
// is recorded in the scheduled task log, and a failing routine never stops
// the loop; the next tick simply retries.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/investment-ledger-core/internal/config"
	"github.com/investment-ledger-core/internal/domain/schedtask"
	"github.com/investment-ledger-core/internal/ledger/service"
)

// InvestmentSweeper is the slice of the investment service the scheduler
// drives
type InvestmentSweeper interface {
	ProcessYieldPayouts(ctx context.Context) (*service.SweepSummary, error)
	CheckMaturities(ctx context.Context) (*service.SweepSummary, error)
}

// ComplianceScanner re-evaluates recently completed transactions
type ComplianceScanner interface {
	ScanRecent(ctx context.Context, window time.Duration) (int, error)
}

// SessionCleaner prunes expired sessions
type SessionCleaner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler owns the periodic loop. Start launches it; Stop waits for the
// in-flight tick to finish.
type Scheduler struct {
	cfg         *config.SchedulerConfig
	taskRepo    schedtask.Repository
	investments InvestmentSweeper
	compliance  ComplianceScanner
	sessions    SessionCleaner
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler over the given routines
func NewScheduler(
	logger *slog.Logger,
	cfg *config.SchedulerConfig,
	taskRepo schedtask.Repository,
	investments InvestmentSweeper,
	compliance ComplianceScanner,
	sessions SessionCleaner,
) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		taskRepo:    taskRepo,
		investments: investments,
		compliance:  compliance,
		sessions:    sessions,
		logger:      logger,
	}
}

// Start launches the periodic loop in a background goroutine
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	s.logger.Info("Scheduler started",
		"interval", s.cfg.Interval.String(),
		"initial_delay", s.cfg.InitialDelay.String(),
	)
}

// Stop cancels the loop and blocks until the current tick finishes
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	select {
	case <-time.After(s.cfg.InitialDelay):
	case <-ctx.Done():
		return
	}

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes one full tick: cleanup first, then settlement before
// payouts so a freshly matured investment is never paid yield in the same
// tick, then the compliance re-scan.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.runTask(ctx, schedtask.TypeSessionCleanup, s.runSessionCleanup)
	s.runTask(ctx, schedtask.TypeMaturityCheck, s.runMaturityCheck)
	s.runTask(ctx, schedtask.TypeYieldPayout, s.runYieldPayout)
	s.runTask(ctx, schedtask.TypeAMLScan, s.runAMLScan)
}

// runTask brackets one routine with a scheduled task record. The record is
// best effort: a task-log write failure is logged but never blocks the
// routine itself.
func (s *Scheduler) runTask(ctx context.Context, taskType schedtask.TaskType, fn func(ctx context.Context) (any, error)) {
	if ctx.Err() != nil {
		return
	}

	run := schedtask.NewRun(taskType)
	if err := s.taskRepo.Create(ctx, run); err != nil {
		s.logger.Error("Failed to record task start", "task_type", string(taskType), "error", err)
	}

	details, err := fn(ctx)

	status := schedtask.StatusCompleted
	if err != nil {
		status = schedtask.StatusFailed
		details = map[string]string{"error": err.Error()}
		s.logger.Error("Scheduled task failed", "task_type", string(taskType), "error", err)
	}

	payload, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		payload = nil
	}
	if err := s.taskRepo.Finish(ctx, run.ID, status, payload); err != nil {
		s.logger.Error("Failed to record task finish", "task_type", string(taskType), "error", err)
	}
}

func (s *Scheduler) runSessionCleanup(ctx context.Context) (any, error) {
	removed, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Session cleanup finished", "removed", removed)
	return map[string]int64{"removed": removed}, nil
}

func (s *Scheduler) runMaturityCheck(ctx context.Context) (any, error) {
	summary, err := s.investments.CheckMaturities(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Maturity check finished",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *Scheduler) runYieldPayout(ctx context.Context) (any, error) {
	summary, err := s.investments.ProcessYieldPayouts(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Yield payout sweep finished",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *Scheduler) runAMLScan(ctx context.Context) (any, error) {
	flagged, err := s.compliance.ScanRecent(ctx, s.cfg.Interval*2)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Compliance scan finished", "flagged", flagged)
	return map[string]int{"flagged": flagged}, nil
}
