package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Schedule groups the session templates of one curriculum/period.
type Schedule struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	CurriculumID  *string   `db:"curriculum_id" json:"curriculum_id,omitempty"`
	TotalSessions int       `db:"total_sessions" json:"total_sessions"`
	ConflictCount int       `db:"conflict_count" json:"conflict_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// GenerationConfig is the per-schedule record governing a generation run:
// date range, excluded dates (holidays), and conflict tolerance.
type GenerationConfig struct {
	ID                     string         `db:"id" json:"id"`
	ScheduleID             string         `db:"schedule_id" json:"schedule_id"`
	StartDate              time.Time      `db:"start_date" json:"start_date"`
	EndDate                time.Time      `db:"end_date" json:"end_date"`
	ExcludedDates          types.JSONText `db:"excluded_dates" json:"excluded_dates"`
	AllowConflicts         bool           `db:"allow_conflicts" json:"allow_conflicts"`
	MinCompletionRatio     float64        `db:"min_completion_ratio" json:"min_completion_ratio"`
	MaxConsecutiveFailures int            `db:"max_consecutive_failures" json:"max_consecutive_failures"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
}
