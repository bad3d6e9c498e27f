package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

type scheduleStore interface {
	List(ctx context.Context) ([]models.Schedule, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	FindGenerationConfig(ctx context.Context, scheduleID string) (*models.GenerationConfig, error)
	SaveGenerationConfig(ctx context.Context, cfg *models.GenerationConfig) error
}

type sessionStore interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, sess *models.Session) error
	ListOccurrences(ctx context.Context, scheduleID string) ([]models.SessionOccurrence, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CreateScheduleRequest is the payload for opening a new schedule.
type CreateScheduleRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	CurriculumID *string `json:"curriculum_id" validate:"omitempty,max=64"`
}

// CreateSessionRequest adds a session template to a schedule.
type CreateSessionRequest struct {
	CourseID          string  `json:"course_id" validate:"required"`
	TeacherID         string  `json:"teacher_id" validate:"required"`
	TimeSlotID        *string `json:"time_slot_id"`
	RoomID            *string `json:"room_id"`
	SpecificStartTime *string `json:"specific_start_time" validate:"omitempty,datetime=15:04"`
	SpecificEndTime   *string `json:"specific_end_time" validate:"omitempty,datetime=15:04"`
	ExpectedStudents  int     `json:"expected_students" validate:"required,min=1,max=2000"`
}

// SaveGenerationConfigRequest stores the per-schedule generation window.
type SaveGenerationConfigRequest struct {
	StartDate              string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate                string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	ExcludedDates          []string `json:"excluded_dates" validate:"omitempty,dive,datetime=2006-01-02"`
	AllowConflicts         bool     `json:"allow_conflicts"`
	MinCompletionRatio     float64  `json:"min_completion_ratio" validate:"omitempty,gt=0,lte=1"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures" validate:"omitempty,min=1,max=1000"`
}

// ScheduleService manages schedules, their session templates and the stored
// generation configuration.
type ScheduleService struct {
	schedules scheduleStore
	sessions  sessionStore
	courses   courseLookup
	teachers  teacherLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService wires the schedule dependencies.
func NewScheduleService(schedules scheduleStore, sessions sessionStore, courses courseLookup, teachers teacherLookup, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules: schedules,
		sessions:  sessions,
		courses:   courses,
		teachers:  teachers,
		validator: validate,
		logger:    logger,
	}
}

// List returns all schedules, newest first.
func (s *ScheduleService) List(ctx context.Context) ([]models.Schedule, error) {
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list schedules")
	}
	return schedules, nil
}

// Get fetches one schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	return schedule, nil
}

// Create opens a new schedule.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	schedule := &models.Schedule{
		Name:         req.Name,
		CurriculumID: req.CurriculumID,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create schedule")
	}
	s.logger.Info("schedule created", zap.String("schedule_id", schedule.ID), zap.String("name", schedule.Name))
	return schedule, nil
}

// ListSessions returns a schedule's session templates.
func (s *ScheduleService) ListSessions(ctx context.Context, scheduleID string) ([]models.Session, error) {
	if _, err := s.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list sessions")
	}
	return sessions, nil
}

// CreateSession adds a session template after checking its references.
func (s *ScheduleService) CreateSession(ctx context.Context, scheduleID string, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if _, err := s.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course_id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load course")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown teacher_id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher")
	}

	sess := &models.Session{
		ScheduleID:        scheduleID,
		CourseID:          req.CourseID,
		TeacherID:         req.TeacherID,
		TimeSlotID:        req.TimeSlotID,
		RoomID:            req.RoomID,
		SpecificStartTime: req.SpecificStartTime,
		SpecificEndTime:   req.SpecificEndTime,
		ExpectedStudents:  req.ExpectedStudents,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create session")
	}
	return sess, nil
}

// GetSession fetches one session template, checking it belongs to the
// schedule in the request path.
func (s *ScheduleService) GetSession(ctx context.Context, scheduleID, sessionID string) (*models.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load session")
	}
	if sess.ScheduleID != scheduleID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return sess, nil
}

// ListOccurrences returns the schedule's generated occurrences ordered by
// date and start time.
func (s *ScheduleService) ListOccurrences(ctx context.Context, scheduleID string) ([]models.SessionOccurrence, error) {
	if _, err := s.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	occurrences, err := s.sessions.ListOccurrences(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list occurrences")
	}
	return occurrences, nil
}

// GetGenerationConfig fetches the stored generation window, if any.
func (s *ScheduleService) GetGenerationConfig(ctx context.Context, scheduleID string) (*models.GenerationConfig, error) {
	if _, err := s.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	cfg, err := s.schedules.FindGenerationConfig(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no generation config stored for this schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load generation config")
	}
	return cfg, nil
}

// SaveGenerationConfig upserts the per-schedule generation window.
func (s *ScheduleService) SaveGenerationConfig(ctx context.Context, scheduleID string, req SaveGenerationConfigRequest) (*models.GenerationConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation config payload")
	}
	if _, err := s.Get(ctx, scheduleID); err != nil {
		return nil, err
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	excluded, err := json.Marshal(req.ExcludedDates)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode excluded dates")
	}

	cfg := &models.GenerationConfig{
		ScheduleID:             scheduleID,
		StartDate:              start,
		EndDate:                end,
		ExcludedDates:          excluded,
		AllowConflicts:         req.AllowConflicts,
		MinCompletionRatio:     req.MinCompletionRatio,
		MaxConsecutiveFailures: req.MaxConsecutiveFailures,
	}
	if err := s.schedules.SaveGenerationConfig(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "save generation config")
	}
	s.logger.Info("generation config saved",
		zap.String("schedule_id", scheduleID),
		zap.Time("start_date", start),
		zap.Time("end_date", end))
	return cfg, nil
}
