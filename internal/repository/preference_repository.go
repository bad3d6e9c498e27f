package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// PreferenceRepository reads class room preferences, flattened to the
// per-course view the room scorer consumes.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs a PreferenceRepository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// ListForSchedule joins class room preferences through enrollments onto the
// courses of one schedule. The strongest (lowest) priority wins when several
// classes prefer the same room for the same course.
func (r *PreferenceRepository) ListForSchedule(ctx context.Context, scheduleID string) ([]models.CourseRoomPreference, error) {
	const query = `SELECT s.course_id, p.room_id, MIN(p.priority) AS priority
		FROM class_room_preferences p
		JOIN class_courses cc ON cc.student_class_id = p.student_class_id
		JOIN sessions s ON s.course_id = cc.course_id
		WHERE s.schedule_id = $1 AND p.is_active = TRUE
		GROUP BY s.course_id, p.room_id`
	var prefs []models.CourseRoomPreference
	if err := r.db.SelectContext(ctx, &prefs, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list room preferences: %w", err)
	}
	return prefs, nil
}
