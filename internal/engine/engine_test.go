package engine

import (
	"github.com/oapet-edu/timetable-api/internal/models"
)

// Shared fixtures for the engine tests: a small but realistic schedule with
// two teachers, three rooms and a week of morning/afternoon slots.

func strPtr(s string) *string { return &s }

func fixtureRooms() []models.Room {
	return []models.Room{
		{ID: "room-a", Code: "A101", Capacity: 40, HasProjector: true, IsActive: true},
		{ID: "room-b", Code: "B201", Capacity: 40, HasProjector: true, IsActive: true},
		{ID: "room-c", Code: "C301", Capacity: 120, HasProjector: true, HasComputer: true, IsActive: true},
	}
}

func fixtureSlots() []models.TimeSlot {
	return []models.TimeSlot{
		{ID: "slot-mon-am", DayOfWeek: "monday", StartTime: "08:00", EndTime: "10:00", IsActive: true},
		{ID: "slot-mon-pm", DayOfWeek: "monday", StartTime: "14:00", EndTime: "16:00", IsActive: true},
		{ID: "slot-tue-am", DayOfWeek: "tuesday", StartTime: "08:00", EndTime: "10:00", IsActive: true},
		{ID: "slot-thu-pm", DayOfWeek: "thursday", StartTime: "14:00", EndTime: "16:00", IsActive: true},
		{ID: "slot-fri-pm", DayOfWeek: "friday", StartTime: "14:00", EndTime: "16:00", IsActive: true},
	}
}

func fixtureCourses() []models.Course {
	return []models.Course{
		{
			ID: "course-cm", Code: "MATH-CM", Name: "Analysis lectures",
			Type: models.CourseTypeLecture, TotalHours: 4, MaxStudents: 35,
			Priority: 1, IsActive: true,
		},
		{
			ID: "course-td", Code: "MATH-TD", Name: "Analysis tutorials",
			Type: models.CourseTypeTutorial, TotalHours: 4, MaxStudents: 35,
			Priority: 2, IsActive: true,
		},
	}
}

func fixtureTeachers() []models.Teacher {
	return []models.Teacher{
		{ID: "teacher-1", FullName: "A. Diallo", MaxHoursPerWeek: 12, IsActive: true},
		{ID: "teacher-2", FullName: "B. Ndiaye", MaxHoursPerWeek: 12, IsActive: true},
	}
}

func fixtureSessions() []models.Session {
	return []models.Session{
		{
			ID: "sess-cm", ScheduleID: "sched-1", CourseID: "course-cm",
			TeacherID: "teacher-1", TimeSlotID: strPtr("slot-mon-am"),
			RoomID: strPtr("room-a"), ExpectedStudents: 35,
		},
		{
			ID: "sess-td", ScheduleID: "sched-1", CourseID: "course-td",
			TeacherID: "teacher-2", TimeSlotID: strPtr("slot-thu-pm"),
			RoomID: strPtr("room-b"), ExpectedStudents: 35,
		},
	}
}

func fixtureSnapshot() *Snapshot {
	return NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  fixtureSessions(),
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})
}
