package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus is the lifecycle state of a background optimization run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// OptimizationRun records one optimizer execution against a schedule.
type OptimizationRun struct {
	ID         string         `db:"id" json:"id"`
	ScheduleID string         `db:"schedule_id" json:"schedule_id"`
	Algorithm  string         `db:"algorithm" json:"algorithm"`
	Status     RunStatus      `db:"status" json:"status"`
	Fitness    *float64       `db:"fitness" json:"fitness,omitempty"`
	Objectives types.JSONText `db:"objectives" json:"objectives,omitempty"`
	Error      *string        `db:"error" json:"error,omitempty"`
	Attempt    int            `db:"attempt" json:"attempt"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	StartedAt  *time.Time     `db:"started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
}

// IsTerminal reports whether the run reached a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}
