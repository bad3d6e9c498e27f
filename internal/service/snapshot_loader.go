package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/engine"
	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type sessionLister interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.Session, error)
}

type courseBatchReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type teacherBatchReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
}

type roomLister interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type timeSlotLister interface {
	ListActive(ctx context.Context) ([]models.TimeSlot, error)
}

type preferenceLister interface {
	ListForSchedule(ctx context.Context, scheduleID string) ([]models.CourseRoomPreference, error)
}

// SnapshotLoader assembles the engine's read model from the repositories.
// Both the generation and optimization services build their input through it.
type SnapshotLoader struct {
	schedules   scheduleReader
	sessions    sessionLister
	courses     courseBatchReader
	teachers    teacherBatchReader
	rooms       roomLister
	slots       timeSlotLister
	preferences preferenceLister
	logger      *zap.Logger
}

// NewSnapshotLoader wires the loader's repository dependencies.
func NewSnapshotLoader(
	schedules scheduleReader,
	sessions sessionLister,
	courses courseBatchReader,
	teachers teacherBatchReader,
	rooms roomLister,
	slots timeSlotLister,
	preferences preferenceLister,
	logger *zap.Logger,
) *SnapshotLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotLoader{
		schedules:   schedules,
		sessions:    sessions,
		courses:     courses,
		teachers:    teachers,
		rooms:       rooms,
		slots:       slots,
		preferences: preferences,
		logger:      logger,
	}
}

// Load builds a snapshot for one schedule. Courses and teachers are fetched
// in batches keyed off the schedule's sessions.
func (l *SnapshotLoader) Load(ctx context.Context, scheduleID string) (*engine.Snapshot, error) {
	schedule, err := l.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}

	sessions, err := l.sessions.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load sessions")
	}

	courseIDs := make(map[string]struct{})
	teacherIDs := make(map[string]struct{})
	for _, sess := range sessions {
		courseIDs[sess.CourseID] = struct{}{}
		teacherIDs[sess.TeacherID] = struct{}{}
	}

	courses, err := l.courses.ListByIDs(ctx, keys(courseIDs))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load courses")
	}
	teachers, err := l.teachers.ListByIDs(ctx, keys(teacherIDs))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teachers")
	}
	rooms, err := l.rooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load rooms")
	}
	slots, err := l.slots.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load time slots")
	}
	prefs, err := l.preferences.ListForSchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load room preferences")
	}

	l.logger.Debug("snapshot loaded",
		zap.String("schedule_id", scheduleID),
		zap.Int("sessions", len(sessions)),
		zap.Int("rooms", len(rooms)),
		zap.Int("time_slots", len(slots)))

	return engine.NewSnapshot(engine.SnapshotInput{
		Schedule:    *schedule,
		Sessions:    sessions,
		Courses:     courses,
		Teachers:    teachers,
		Rooms:       rooms,
		TimeSlots:   slots,
		Preferences: prefs,
	}), nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
