package models

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CourseType is the pedagogical category of a course. The type drives ordering
// and timing rules: lectures (CM) come before tutorials (TD), tutorials before
// labs (TP).
type CourseType string

const (
	CourseTypeLecture    CourseType = "CM"
	CourseTypeTutorial   CourseType = "TD"
	CourseTypeLab        CourseType = "TP"
	CourseTypeGuidedWork CourseType = "TPE"
	CourseTypeConference CourseType = "CONF"
	CourseTypeExam       CourseType = "EXAM"
)

// Course describes a teachable unit and its room requirements.
type Course struct {
	ID                 string         `db:"id" json:"id"`
	Code               string         `db:"code" json:"code"`
	Name               string         `db:"name" json:"name"`
	Type               CourseType     `db:"course_type" json:"course_type"`
	TotalHours         int            `db:"total_hours" json:"total_hours"`
	MaxStudents        int            `db:"max_students" json:"max_students"`
	RequiresComputer   bool           `db:"requires_computer" json:"requires_computer"`
	RequiresProjector  bool           `db:"requires_projector" json:"requires_projector"`
	RequiresLaboratory bool           `db:"requires_laboratory" json:"requires_laboratory"`
	Priority           int            `db:"priority" json:"priority"`
	PreferredTimes     types.JSONText `db:"preferred_times" json:"preferred_times"`
	IsActive           bool           `db:"is_active" json:"is_active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// BaseCode strips the type suffix from a course code: "MATH-TD" -> "MATH".
func (c Course) BaseCode() string {
	return BaseCode(c.Code)
}

// BaseCode returns the subject part of a course code.
func BaseCode(code string) string {
	return strings.SplitN(code, "-", 2)[0]
}

// PreferredWindow is one declared preferred teaching window for a course,
// stored as JSON on the course row.
type PreferredWindow struct {
	DayOfWeek string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Teacher is the person assigned to sessions.
type Teacher struct {
	ID              string    `db:"id" json:"id"`
	FullName        string    `db:"full_name" json:"full_name"`
	MaxHoursPerWeek int       `db:"max_hours_per_week" json:"max_hours_per_week"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
