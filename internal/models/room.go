package models

import "time"

// Room is immutable reference data for the scheduling core.
type Room struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Building     string    `db:"building" json:"building"`
	Capacity     int       `db:"capacity" json:"capacity"`
	HasComputer  bool      `db:"has_computer" json:"has_computer"`
	HasProjector bool      `db:"has_projector" json:"has_projector"`
	IsLaboratory bool      `db:"is_laboratory" json:"is_laboratory"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Satisfies reports whether the room can host the course: enough seats and
// every required feature flag present.
func (r Room) Satisfies(course Course) bool {
	if r.Capacity < course.MaxStudents {
		return false
	}
	if course.RequiresComputer && !r.HasComputer {
		return false
	}
	if course.RequiresProjector && !r.HasProjector {
		return false
	}
	if course.RequiresLaboratory && !r.IsLaboratory {
		return false
	}
	return true
}
