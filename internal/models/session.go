package models

import "time"

// OccurrenceStatus tracks the lifecycle of a dated occurrence.
type OccurrenceStatus string

const (
	OccurrenceStatusScheduled OccurrenceStatus = "scheduled"
	OccurrenceStatusCancelled OccurrenceStatus = "cancelled"
)

// Session is the recurring template of a course meeting within a schedule.
// The generator and optimizers read it; only the apply-solution step mutates
// its room/time-slot assignment.
type Session struct {
	ID                string    `db:"id" json:"id"`
	ScheduleID        string    `db:"schedule_id" json:"schedule_id"`
	CourseID          string    `db:"course_id" json:"course_id"`
	TeacherID         string    `db:"teacher_id" json:"teacher_id"`
	RoomID            *string   `db:"room_id" json:"room_id,omitempty"`
	TimeSlotID        *string   `db:"time_slot_id" json:"time_slot_id,omitempty"`
	SpecificStartTime *string   `db:"specific_start_time" json:"specific_start_time,omitempty"`
	SpecificEndTime   *string   `db:"specific_end_time" json:"specific_end_time,omitempty"`
	ExpectedStudents  int       `db:"expected_students" json:"expected_students"`
	IsCancelled       bool      `db:"is_cancelled" json:"is_cancelled"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SessionOccurrence is one dated, concrete materialization of a session
// template. Immutable once persisted except for status transitions.
type SessionOccurrence struct {
	ID             string           `db:"id" json:"id"`
	SessionID      string           `db:"session_id" json:"session_id"`
	Date           time.Time        `db:"actual_date" json:"actual_date"`
	StartTime      string           `db:"start_time" json:"start_time"`
	EndTime        string           `db:"end_time" json:"end_time"`
	RoomID         string           `db:"room_id" json:"room_id"`
	TeacherID      string           `db:"teacher_id" json:"teacher_id"`
	Status         OccurrenceStatus `db:"status" json:"status"`
	IsRoomModified bool             `db:"is_room_modified" json:"is_room_modified"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
