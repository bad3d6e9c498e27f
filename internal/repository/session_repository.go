package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// SessionRepository manages session templates and their dated occurrences.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, schedule_id, course_id, teacher_id, room_id, time_slot_id, specific_start_time, specific_end_time, expected_students, is_cancelled, created_at, updated_at`

// ListBySchedule returns every session template of a schedule.
func (r *SessionRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE schedule_id = $1 ORDER BY id ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list sessions by schedule: %w", err)
	}
	return sessions, nil
}

// FindByID fetches a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var sess models.Session
	if err := r.db.GetContext(ctx, &sess, query, id); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Create inserts a new session template.
func (r *SessionRepository) Create(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	const query = `INSERT INTO sessions (id, schedule_id, course_id, teacher_id, room_id, time_slot_id, specific_start_time, specific_end_time, expected_students, is_cancelled, created_at, updated_at)
		VALUES (:id, :schedule_id, :course_id, :teacher_id, :room_id, :time_slot_id, :specific_start_time, :specific_end_time, :expected_students, :is_cancelled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateAssignmentWithTx rewrites a session's slot and room inside an existing
// transaction. Used when applying an optimizer solution.
func (r *SessionRepository) UpdateAssignmentWithTx(ctx context.Context, tx *sqlx.Tx, sessionID, timeSlotID, roomID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE sessions SET time_slot_id = $2, room_id = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, sessionID, timeSlotID, roomID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session assignment: %w", err)
	}
	return nil
}

// ListOccurrences returns the dated occurrences of a schedule in calendar
// order.
func (r *SessionRepository) ListOccurrences(ctx context.Context, scheduleID string) ([]models.SessionOccurrence, error) {
	const q = `SELECT o.id, o.session_id, o.actual_date, o.start_time, o.end_time, o.room_id, o.teacher_id, o.status, o.is_room_modified, o.created_at
		FROM session_occurrences o
		JOIN sessions s ON s.id = o.session_id
		WHERE s.schedule_id = $1
		ORDER BY o.actual_date ASC, o.start_time ASC`
	var occurrences []models.SessionOccurrence
	if err := r.db.SelectContext(ctx, &occurrences, q, scheduleID); err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	return occurrences, nil
}

// BulkCreateOccurrencesWithTx inserts generated occurrences inside an
// existing transaction, assigning IDs as it goes.
func (r *SessionRepository) BulkCreateOccurrencesWithTx(ctx context.Context, tx *sqlx.Tx, occurrences []models.SessionOccurrence) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	const query = `INSERT INTO session_occurrences (id, session_id, actual_date, start_time, end_time, room_id, teacher_id, status, is_room_modified, created_at)
		VALUES (:id, :session_id, :actual_date, :start_time, :end_time, :room_id, :teacher_id, :status, :is_room_modified, :created_at)`
	for i := range occurrences {
		payload := occurrences[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("bulk insert occurrence: %w", err)
		}
		occurrences[i] = payload
	}
	return nil
}

// DeleteOccurrencesWithTx removes every occurrence of a schedule inside an
// existing transaction. Used by force-regenerate.
func (r *SessionRepository) DeleteOccurrencesWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `DELETE FROM session_occurrences WHERE session_id IN (SELECT id FROM sessions WHERE schedule_id = $1)`
	if _, err := tx.ExecContext(ctx, query, scheduleID); err != nil {
		return fmt.Errorf("delete occurrences: %w", err)
	}
	return nil
}

// CountOccurrences returns how many occurrences a schedule currently has.
func (r *SessionRepository) CountOccurrences(ctx context.Context, scheduleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM session_occurrences o JOIN sessions s ON s.id = o.session_id WHERE s.schedule_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, scheduleID); err != nil {
		return 0, fmt.Errorf("count occurrences: %w", err)
	}
	return total, nil
}
