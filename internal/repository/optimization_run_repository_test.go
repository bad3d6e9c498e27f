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

func newRunRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOptimizationRunRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	mock.ExpectExec("INSERT INTO optimization_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.OptimizationRun{ScheduleID: "sched-1", Algorithm: "genetic"}
	require.NoError(t, repo.Create(context.Background(), run))

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.False(t, run.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryCountActive(t *testing.T) {
	db, mock, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM optimization_runs WHERE schedule_id = $1 AND status IN ($2, $3)")).
		WithArgs("sched-1", models.RunStatusPending, models.RunStatusRunning).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	total, err := repo.CountActive(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryLifecycle(t *testing.T) {
	db, mock, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	mock.ExpectExec("UPDATE optimization_runs SET status").
		WithArgs("run-1", models.RunStatusRunning, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRunning(context.Background(), "run-1"))

	fitness := -1.5
	run := &models.OptimizationRun{ID: "run-1", Status: models.RunStatusCompleted, Fitness: &fitness}
	mock.ExpectExec("UPDATE optimization_runs SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Finish(context.Background(), run))

	require.NotNil(t, run.FinishedAt)
	assert.WithinDuration(t, time.Now().UTC(), *run.FinishedAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryListByScheduleAndStatus(t *testing.T) {
	db, mock, cleanup := newRunRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "algorithm", "status", "fitness", "objectives", "error", "attempt", "created_at", "started_at", "finished_at"}).
		AddRow("run-1", "sched-1", "genetic", "COMPLETED", -0.4, nil, nil, 0, time.Now(), nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM optimization_runs WHERE 1=1 AND schedule_id").
		WithArgs("sched-1", models.RunStatusCompleted).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), models.RunFilter{ScheduleID: "sched-1", Status: models.RunStatusCompleted})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
