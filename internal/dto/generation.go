package dto

import "github.com/oapet-edu/timetable-api/internal/engine"

// GenerateScheduleRequest asks for a full timetable generation run.
type GenerateScheduleRequest struct {
	ScheduleID      string   `json:"schedule_id" validate:"required,uuid"`
	Preview         bool     `json:"preview"`
	ForceRegenerate bool     `json:"force_regenerate"`
	DateFrom        string   `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo          string   `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	ExcludedDates   []string `json:"excluded_dates" validate:"omitempty,dive,datetime=2006-01-02"`
	AllowConflicts  *bool    `json:"allow_conflicts"`
}

// GenerateScheduleResponse wraps the engine result with run bookkeeping.
type GenerateScheduleResponse struct {
	ScheduleID string                   `json:"schedule_id"`
	Preview    bool                     `json:"preview"`
	Result     *engine.GenerationResult `json:"result"`
}

// PredictConflictsResponse carries the predictor output for a schedule.
type PredictConflictsResponse struct {
	ScheduleID  string                      `json:"schedule_id"`
	Predictions []engine.ConflictPrediction `json:"predictions"`
	HighRisk    int                         `json:"high_risk_count"`
}
