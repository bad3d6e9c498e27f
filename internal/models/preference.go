package models

import "time"

// Room preference priority levels for a student class.
const (
	RoomPreferenceMandatory  = 1
	RoomPreferencePreferred  = 2
	RoomPreferenceAcceptable = 3
)

// ClassRoomPreference is a room affinity declared by a student class.
type ClassRoomPreference struct {
	ID             string    `db:"id" json:"id"`
	StudentClassID string    `db:"student_class_id" json:"student_class_id"`
	RoomID         string    `db:"room_id" json:"room_id"`
	Priority       int       `db:"priority" json:"priority"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CourseRoomPreference is the join of class-course enrollment with room
// preferences, flattened to what the room scorer consumes: for a course,
// which rooms its classes prefer and how strongly.
type CourseRoomPreference struct {
	CourseID string `db:"course_id" json:"course_id"`
	RoomID   string `db:"room_id" json:"room_id"`
	Priority int    `db:"priority" json:"priority"`
}
