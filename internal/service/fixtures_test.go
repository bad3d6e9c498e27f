package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/engine"
	"github.com/oapet-edu/timetable-api/internal/models"
)

const fixtureScheduleID = "0b0e7f3c-8a52-4c8e-9f2d-6a1c4b7e9d10"

func strPtr(s string) *string { return &s }

// --- Snapshot loader stubs ---

type scheduleRepoStub struct {
	schedule *models.Schedule
}

func (s scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s.schedule == nil || s.schedule.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.schedule
	return &copied, nil
}

type sessionRepoStub struct {
	items []models.Session
}

func (s sessionRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Session, error) {
	return s.items, nil
}

type courseRepoStub struct {
	items []models.Course
}

func (s courseRepoStub) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	return s.items, nil
}

type teacherRepoStub struct {
	items []models.Teacher
}

func (s teacherRepoStub) ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error) {
	return s.items, nil
}

type roomRepoStub struct {
	items []models.Room
}

func (s roomRepoStub) ListActive(ctx context.Context) ([]models.Room, error) {
	return s.items, nil
}

type slotRepoStub struct {
	items []models.TimeSlot
}

func (s slotRepoStub) ListActive(ctx context.Context) ([]models.TimeSlot, error) {
	return s.items, nil
}

type preferenceRepoStub struct {
	items []models.CourseRoomPreference
}

func (s preferenceRepoStub) ListForSchedule(ctx context.Context, scheduleID string) ([]models.CourseRoomPreference, error) {
	return s.items, nil
}

func newLoaderFixture() *SnapshotLoader {
	schedule := &models.Schedule{ID: fixtureScheduleID, Name: "S1 2026"}
	courses := []models.Course{
		{
			ID: "course-cm", Code: "MATH-CM", Name: "Analysis lectures",
			Type: models.CourseTypeLecture, TotalHours: 4, MaxStudents: 35,
			RequiresProjector: true, Priority: 1, IsActive: true,
		},
		{
			ID: "course-td", Code: "MATH-TD", Name: "Analysis tutorials",
			Type: models.CourseTypeTutorial, TotalHours: 4, MaxStudents: 35,
			Priority: 2, IsActive: true,
		},
	}
	teachers := []models.Teacher{
		{ID: "teacher-1", FullName: "A. Mbarga", MaxHoursPerWeek: 12, IsActive: true},
		{ID: "teacher-2", FullName: "B. Nkoulou", MaxHoursPerWeek: 12, IsActive: true},
	}
	rooms := []models.Room{
		{ID: "room-a", Code: "A101", Capacity: 40, HasProjector: true, IsActive: true},
		{ID: "room-b", Code: "A102", Capacity: 40, HasProjector: true, IsActive: true},
		{ID: "room-c", Code: "B201", Capacity: 120, HasComputer: true, HasProjector: true, IsActive: true},
	}
	slots := []models.TimeSlot{
		{ID: "slot-mon-am", DayOfWeek: "monday", StartTime: "08:00", EndTime: "10:00", IsActive: true},
		{ID: "slot-mon-pm", DayOfWeek: "monday", StartTime: "14:00", EndTime: "16:00", IsActive: true},
		{ID: "slot-tue-am", DayOfWeek: "tuesday", StartTime: "08:00", EndTime: "10:00", IsActive: true},
		{ID: "slot-thu-pm", DayOfWeek: "thursday", StartTime: "14:00", EndTime: "16:00", IsActive: true},
	}
	sessions := []models.Session{
		{
			ID: "sess-cm", ScheduleID: fixtureScheduleID, CourseID: "course-cm", TeacherID: "teacher-1",
			TimeSlotID: strPtr("slot-mon-am"), RoomID: strPtr("room-a"), ExpectedStudents: 35,
		},
		{
			ID: "sess-td", ScheduleID: fixtureScheduleID, CourseID: "course-td", TeacherID: "teacher-2",
			TimeSlotID: strPtr("slot-thu-pm"), RoomID: strPtr("room-b"), ExpectedStudents: 35,
		},
	}

	return NewSnapshotLoader(
		scheduleRepoStub{schedule: schedule},
		sessionRepoStub{items: sessions},
		courseRepoStub{items: courses},
		teacherRepoStub{items: teachers},
		roomRepoStub{items: rooms},
		slotRepoStub{items: slots},
		preferenceRepoStub{},
		zap.NewNop(),
	)
}

// --- Transaction provider backed by sqlmock ---

type metricsUpdate struct {
	scheduleID    string
	totalSessions int
	conflictCount int
}

type txSchedulesStub struct {
	db      *sqlx.DB
	updates []metricsUpdate
}

func (s *txSchedulesStub) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

func (s *txSchedulesStub) UpdateMetricsWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string, totalSessions, conflictCount int) error {
	s.updates = append(s.updates, metricsUpdate{scheduleID: scheduleID, totalSessions: totalSessions, conflictCount: conflictCount})
	return nil
}

func newTxSchedulesStub(t *testing.T) (*txSchedulesStub, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txSchedulesStub{db: sqlx.NewDb(db, "sqlmock")}, mock
}

// --- Progress store stub ---

type progressStoreStub struct {
	saved   map[string][]engine.Progress
	deleted []string
}

func newProgressStoreStub() *progressStoreStub {
	return &progressStoreStub{saved: make(map[string][]engine.Progress)}
}

func (s *progressStoreStub) Save(ctx context.Context, runID string, progress engine.Progress) {
	s.saved[runID] = append(s.saved[runID], progress)
}

func (s *progressStoreStub) Load(ctx context.Context, runID string) (*engine.Progress, error) {
	ticks := s.saved[runID]
	if len(ticks) == 0 {
		return nil, sql.ErrNoRows
	}
	last := ticks[len(ticks)-1]
	return &last, nil
}

func (s *progressStoreStub) Delete(ctx context.Context, runID string) {
	s.deleted = append(s.deleted, runID)
}

func engineProgressTick() engine.Progress {
	return engine.Progress{Algorithm: "genetic", Step: 3, TotalSteps: 10, BestFitness: -1.2}
}
