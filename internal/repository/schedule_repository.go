package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// ScheduleRepository provides persistence for schedules and their generation
// configs.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, name, curriculum_id, total_sessions, conflict_count, created_at, updated_at`

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// List returns all schedules, newest first.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules ORDER BY created_at DESC`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, name, curriculum_id, total_sessions, conflict_count, created_at, updated_at)
		VALUES (:id, :name, :curriculum_id, :total_sessions, :conflict_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// UpdateMetricsWithTx rewrites the derived counters inside an existing
// transaction, after generation or after applying an optimizer solution.
func (r *ScheduleRepository) UpdateMetricsWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string, totalSessions, conflictCount int) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE schedules SET total_sessions = $2, conflict_count = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, scheduleID, totalSessions, conflictCount, time.Now().UTC()); err != nil {
		return fmt.Errorf("update schedule metrics: %w", err)
	}
	return nil
}

// FindGenerationConfig loads the generation config attached to a schedule.
func (r *ScheduleRepository) FindGenerationConfig(ctx context.Context, scheduleID string) (*models.GenerationConfig, error) {
	const query = `SELECT id, schedule_id, start_date, end_date, excluded_dates, allow_conflicts, min_completion_ratio, max_consecutive_failures, created_at
		FROM generation_configs WHERE schedule_id = $1`
	var cfg models.GenerationConfig
	if err := r.db.GetContext(ctx, &cfg, query, scheduleID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveGenerationConfig upserts the generation config for a schedule.
func (r *ScheduleRepository) SaveGenerationConfig(ctx context.Context, cfg *models.GenerationConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO generation_configs (id, schedule_id, start_date, end_date, excluded_dates, allow_conflicts, min_completion_ratio, max_consecutive_failures, created_at)
		VALUES (:id, :schedule_id, :start_date, :end_date, :excluded_dates, :allow_conflicts, :min_completion_ratio, :max_consecutive_failures, :created_at)
		ON CONFLICT (schedule_id) DO UPDATE SET start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, excluded_dates = EXCLUDED.excluded_dates, allow_conflicts = EXCLUDED.allow_conflicts, min_completion_ratio = EXCLUDED.min_completion_ratio, max_consecutive_failures = EXCLUDED.max_consecutive_failures`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("save generation config: %w", err)
	}
	return nil
}

// BeginTx opens a transaction for multi-repository writes.
func (r *ScheduleRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin schedule tx: %w", err)
	}
	return tx, nil
}
