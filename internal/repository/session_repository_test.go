package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oapet-edu/timetable-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "course_id", "teacher_id", "room_id", "time_slot_id", "specific_start_time", "specific_end_time", "expected_students", "is_cancelled", "created_at", "updated_at"}).
		AddRow("s1", "sched-1", "c1", "t1", nil, "slot-1", nil, nil, 30, false, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE schedule_id").
		WithArgs("sched-1").
		WillReturnRows(rows)

	sessions, err := repo.ListBySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Nil(t, sessions[0].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryBulkCreateOccurrencesWithTx(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO session_occurrences").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO session_occurrences").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	occurrences := []models.SessionOccurrence{
		{SessionID: "s1", Date: time.Now(), StartTime: "08:00", EndTime: "10:00", RoomID: "r1", TeacherID: "t1", Status: models.OccurrenceStatusScheduled},
		{SessionID: "s1", Date: time.Now().AddDate(0, 0, 7), StartTime: "08:00", EndTime: "10:00", RoomID: "r1", TeacherID: "t1", Status: models.OccurrenceStatusScheduled},
	}
	require.NoError(t, repo.BulkCreateOccurrencesWithTx(context.Background(), tx, occurrences))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, occurrences[0].ID, "bulk insert must assign IDs")
	assert.NotEmpty(t, occurrences[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryBulkCreateOccurrencesRequiresTx(t *testing.T) {
	db, _, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	err := repo.BulkCreateOccurrencesWithTx(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestSessionRepositoryDeleteOccurrencesWithTx(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_occurrences WHERE session_id IN (SELECT id FROM sessions WHERE schedule_id = $1)")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteOccurrencesWithTx(context.Background(), tx, "sched-1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateAssignmentWithTx(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions SET time_slot_id").
		WithArgs("s1", "slot-2", "room-b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateAssignmentWithTx(context.Background(), tx, "s1", "slot-2", "room-b"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
