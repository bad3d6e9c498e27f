package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// OptimizationRunRepository records optimizer executions and their lifecycle.
type OptimizationRunRepository struct {
	db *sqlx.DB
}

// NewOptimizationRunRepository constructs an OptimizationRunRepository.
func NewOptimizationRunRepository(db *sqlx.DB) *OptimizationRunRepository {
	return &OptimizationRunRepository{db: db}
}

const runColumns = `id, schedule_id, algorithm, status, fitness, objectives, error, attempt, created_at, started_at, finished_at`

// Create inserts a new run in PENDING state.
func (r *OptimizationRunRepository) Create(ctx context.Context, run *models.OptimizationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO optimization_runs (id, schedule_id, algorithm, status, fitness, objectives, error, attempt, created_at, started_at, finished_at)
		VALUES (:id, :schedule_id, :algorithm, :status, :fitness, :objectives, :error, :attempt, :created_at, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create optimization run: %w", err)
	}
	return nil
}

// FindByID fetches a run by ID.
func (r *OptimizationRunRepository) FindByID(ctx context.Context, id string) (*models.OptimizationRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM optimization_runs WHERE id = $1`, runColumns)
	var run models.OptimizationRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs matching the filter, newest first.
func (r *OptimizationRunRepository) List(ctx context.Context, filter models.RunFilter) ([]models.OptimizationRun, error) {
	base := "FROM optimization_runs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ScheduleID != "" {
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", len(args)+1))
		args = append(args, filter.ScheduleID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", runColumns, base, size, offset)
	var runs []models.OptimizationRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list optimization runs: %w", err)
	}
	return runs, nil
}

// CountActive returns how many runs of a schedule are pending or running.
func (r *OptimizationRunRepository) CountActive(ctx context.Context, scheduleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM optimization_runs WHERE schedule_id = $1 AND status IN ($2, $3)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, scheduleID, models.RunStatusPending, models.RunStatusRunning); err != nil {
		return 0, fmt.Errorf("count active runs: %w", err)
	}
	return total, nil
}

// MarkRunning transitions a run to RUNNING and stamps its start time.
func (r *OptimizationRunRepository) MarkRunning(ctx context.Context, id string) error {
	const query = `UPDATE optimization_runs SET status = $2, started_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.RunStatusRunning, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	return nil
}

// Finish records the terminal state and result of a run.
func (r *OptimizationRunRepository) Finish(ctx context.Context, run *models.OptimizationRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	const query = `UPDATE optimization_runs SET status = :status, fitness = :fitness, objectives = :objectives, error = :error, attempt = :attempt, finished_at = :finished_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("finish optimization run: %w", err)
	}
	return nil
}
