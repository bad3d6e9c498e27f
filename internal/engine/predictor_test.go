package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oapet-edu/timetable-api/internal/models"
)

func TestPredictSessionFactors(t *testing.T) {
	snap := fixtureSnapshot()
	predictor := NewConflictPredictor(snap)

	t.Run("lightly loaded teacher in a fitting room", func(t *testing.T) {
		prediction := predictor.PredictSession("sess-cm")
		// One 2-hour session against a 12-hour weekly maximum.
		assert.InDelta(t, 2.0/12.0, prediction.Factors[FactorTeacherOverload], 1e-9)
		assert.Zero(t, prediction.Factors[FactorRoomCapacityMismatch])
		assert.Zero(t, prediction.Factors[FactorTimePreferenceViolation])
		assert.Zero(t, prediction.Factors[FactorCurriculumClustering])
		assert.Zero(t, prediction.Factors[FactorResourceContention])
		assert.False(t, prediction.HighRisk)
		assert.Empty(t, prediction.Recommendations)
	})

	t.Run("unknown session yields a zero prediction", func(t *testing.T) {
		prediction := predictor.PredictSession("sess-ghost")
		assert.Zero(t, prediction.Probability)
		assert.Empty(t, prediction.Factors)
	})
}

func TestPredictSessionCapacityMismatch(t *testing.T) {
	sessions := fixtureSessions()
	sessions[0].ExpectedStudents = 50 // room-a only seats 40
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	prediction := NewConflictPredictor(snap).PredictSession("sess-cm")

	assert.InDelta(t, 0.2, prediction.Factors[FactorRoomCapacityMismatch], 1e-9)
}

func TestPredictSessionContention(t *testing.T) {
	// Both sessions pinned to the same slot and room.
	sessions := fixtureSessions()
	sessions[1].TimeSlotID = strPtr("slot-mon-am")
	sessions[1].RoomID = strPtr("room-a")
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	prediction := NewConflictPredictor(snap).PredictSession("sess-cm")

	assert.Equal(t, 1.0, prediction.Factors[FactorResourceContention])
	assert.InDelta(t, 0.3, prediction.Factors[FactorCurriculumClustering], 1e-9)
	assert.Contains(t, prediction.Recommendations,
		"resolve the room double-booking before publishing")
}

func TestPredictSessionTimeViolation(t *testing.T) {
	// A lab pinned to the forbidden early-morning slot.
	courses := append(fixtureCourses(), models.Course{
		ID: "course-tp", Code: "MATH-TP", Type: models.CourseTypeLab,
		TotalHours: 4, MaxStudents: 35, IsActive: true,
	})
	sessions := append(fixtureSessions(), models.Session{
		ID: "sess-tp", ScheduleID: "sched-1", CourseID: "course-tp",
		TeacherID: "teacher-2", TimeSlotID: strPtr("slot-mon-am"),
		RoomID: strPtr("room-b"), ExpectedStudents: 35,
	})
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   courses,
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	prediction := NewConflictPredictor(snap).PredictSession("sess-tp")

	assert.Equal(t, 1.0, prediction.Factors[FactorTimePreferenceViolation])
	assert.Contains(t, prediction.Recommendations,
		"reschedule inside the preferred window for this course type")
}

func TestPredictScheduleOrdersByRisk(t *testing.T) {
	sessions := fixtureSessions()
	sessions[1].TimeSlotID = strPtr("slot-mon-am")
	sessions[1].RoomID = strPtr("room-a")
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	predictions := NewConflictPredictor(snap).PredictSchedule()

	require.Len(t, predictions, 2)
	for i := 1; i < len(predictions); i++ {
		assert.GreaterOrEqual(t, predictions[i-1].Probability, predictions[i].Probability)
	}
}
