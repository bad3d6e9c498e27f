package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
}

type roomStore interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Deactivate(ctx context.Context, id string) error
}

type timeSlotStore interface {
	ListActive(ctx context.Context) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
}

type teacherStore interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

// CreateCourseRequest is the payload for registering a course.
type CreateCourseRequest struct {
	Code               string  `json:"code" validate:"required,max=32"`
	Name               string  `json:"name" validate:"required,max=255"`
	Type               string  `json:"course_type" validate:"required,oneof=CM TD TP TPE CONF EXAM"`
	TotalHours         int     `json:"total_hours" validate:"required,min=1,max=500"`
	MaxStudents        int     `json:"max_students" validate:"required,min=1,max=2000"`
	RequiresComputer   bool    `json:"requires_computer"`
	RequiresProjector  bool    `json:"requires_projector"`
	RequiresLaboratory bool    `json:"requires_laboratory"`
	Priority           int     `json:"priority" validate:"min=0,max=100"`
	PreferredTimes     *string `json:"preferred_times"`
}

// UpdateCourseRequest carries partial course updates.
type UpdateCourseRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=255"`
	TotalHours     *int    `json:"total_hours" validate:"omitempty,min=1,max=500"`
	MaxStudents    *int    `json:"max_students" validate:"omitempty,min=1,max=2000"`
	Priority       *int    `json:"priority" validate:"omitempty,min=0,max=100"`
	PreferredTimes *string `json:"preferred_times"`
}

// CreateRoomRequest is the payload for registering a room.
type CreateRoomRequest struct {
	Code         string `json:"code" validate:"required,max=32"`
	Building     string `json:"building" validate:"max=64"`
	Capacity     int    `json:"capacity" validate:"required,min=1,max=5000"`
	HasComputer  bool   `json:"has_computer"`
	HasProjector bool   `json:"has_projector"`
	IsLaboratory bool   `json:"is_laboratory"`
}

// CreateTimeSlotRequest is the payload for declaring a weekly slot.
type CreateTimeSlotRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

// CreateTeacherRequest is the payload for registering a teacher.
type CreateTeacherRequest struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	MaxHoursPerWeek int    `json:"max_hours_per_week" validate:"required,min=1,max=60"`
}

// CatalogService manages the reference data the engine schedules against:
// courses, rooms, time slots and teachers.
type CatalogService struct {
	courses   courseStore
	rooms     roomStore
	slots     timeSlotStore
	teachers  teacherStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService wires the catalog repositories.
func NewCatalogService(courses courseStore, rooms roomStore, slots timeSlotStore, teachers teacherStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		courses:   courses,
		rooms:     rooms,
		slots:     slots,
		teachers:  teachers,
		validator: validate,
		logger:    logger,
	}
}

// ListCourses returns courses matching the filter plus the unpaged total.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list courses")
	}
	return courses, total, nil
}

// GetCourse fetches one course by id.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load course")
	}
	return course, nil
}

// CreateCourse registers a new course.
func (s *CatalogService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Code:               req.Code,
		Name:               req.Name,
		Type:               models.CourseType(req.Type),
		TotalHours:         req.TotalHours,
		MaxStudents:        req.MaxStudents,
		RequiresComputer:   req.RequiresComputer,
		RequiresProjector:  req.RequiresProjector,
		RequiresLaboratory: req.RequiresLaboratory,
		Priority:           req.Priority,
		IsActive:           true,
	}
	if req.PreferredTimes != nil {
		if !json.Valid([]byte(*req.PreferredTimes)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "preferred_times must be valid JSON")
		}
		course.PreferredTimes = []byte(*req.PreferredTimes)
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// UpdateCourse applies a partial update to a course.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.TotalHours != nil {
		course.TotalHours = *req.TotalHours
	}
	if req.MaxStudents != nil {
		course.MaxStudents = *req.MaxStudents
	}
	if req.Priority != nil {
		course.Priority = *req.Priority
	}
	if req.PreferredTimes != nil {
		if !json.Valid([]byte(*req.PreferredTimes)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "preferred_times must be valid JSON")
		}
		course.PreferredTimes = []byte(*req.PreferredTimes)
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update course")
	}
	return course, nil
}

// DeactivateCourse soft-deletes a course; existing sessions keep referencing it.
func (s *CatalogService) DeactivateCourse(ctx context.Context, id string) error {
	if _, err := s.GetCourse(ctx, id); err != nil {
		return err
	}
	if err := s.courses.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deactivate course")
	}
	return nil
}

// ListRooms returns rooms matching the filter plus the unpaged total.
func (s *CatalogService) ListRooms(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list rooms")
	}
	return rooms, total, nil
}

// GetRoom fetches one room by id.
func (s *CatalogService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load room")
	}
	return room, nil
}

// CreateRoom registers a new room.
func (s *CatalogService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := &models.Room{
		Code:         req.Code,
		Building:     req.Building,
		Capacity:     req.Capacity,
		HasComputer:  req.HasComputer,
		HasProjector: req.HasProjector,
		IsLaboratory: req.IsLaboratory,
		IsActive:     true,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create room")
	}
	return room, nil
}

// DeactivateRoom takes a room out of the scheduling pool.
func (s *CatalogService) DeactivateRoom(ctx context.Context, id string) error {
	if _, err := s.GetRoom(ctx, id); err != nil {
		return err
	}
	if err := s.rooms.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deactivate room")
	}
	return nil
}

// ListTimeSlots returns the active weekly slots.
func (s *CatalogService) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.slots.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list time slots")
	}
	return slots, nil
}

// CreateTimeSlot declares a new weekly slot.
func (s *CatalogService) CreateTimeSlot(ctx context.Context, req CreateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	slot := &models.TimeSlot{
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  true,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create time slot")
	}
	return slot, nil
}

// ListTeachers returns the active teachers.
func (s *CatalogService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list teachers")
	}
	return teachers, nil
}

// CreateTeacher registers a new teacher.
func (s *CatalogService) CreateTeacher(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher := &models.Teacher{
		FullName:        req.FullName,
		MaxHoursPerWeek: req.MaxHoursPerWeek,
		IsActive:        true,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create teacher")
	}
	return teacher, nil
}
