package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oapet-edu/timetable-api/internal/models"
)

func generationRange() GenerationConfig {
	return GenerationConfig{
		StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), // a Monday
		EndDate:   time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestGeneratorFullRun(t *testing.T) {
	snap := fixtureSnapshot()
	gen := NewGenerator(snap, generationRange(), nil)

	result := gen.Generate()

	require.True(t, result.Success)
	// Both courses carry 4 hours in 2-hour slots: two occurrences each.
	assert.Equal(t, 4, result.TotalPlanned)
	assert.Equal(t, 4, result.TotalScheduled)
	assert.InDelta(t, 1.0, result.CompletionRatio, 1e-9)
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Occurrences, 4)

	t.Run("lectures land on consecutive mondays", func(t *testing.T) {
		var dates []string
		for _, occ := range result.Occurrences {
			if occ.SessionID == "sess-cm" {
				dates = append(dates, dateKey(occ.Date))
				assert.Equal(t, "08:00", occ.StartTime)
				assert.Equal(t, "10:00", occ.EndTime)
			}
		}
		assert.Equal(t, []string{"2026-01-05", "2026-01-12"}, dates)
	})

	t.Run("equal-score rooms resolve to the lowest room id", func(t *testing.T) {
		// room-a and room-b are identical for this course; room-c loses on
		// the capacity distance term.
		for _, occ := range result.Occurrences {
			if occ.SessionID == "sess-cm" {
				assert.Equal(t, "room-a", occ.RoomID)
			}
		}
	})
}

func TestGeneratorNoActiveRooms(t *testing.T) {
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  fixtureSessions(),
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		TimeSlots: fixtureSlots(),
	})
	result := NewGenerator(snap, generationRange(), nil).Generate()

	assert.False(t, result.Success)
	assert.Empty(t, result.Occurrences)
	require.Len(t, result.Blockages, 1)
	assert.Equal(t, BlockageNoRooms, result.Blockages[0].Type)
	assert.Equal(t, SeverityCritical, result.Blockages[0].Severity)
}

func TestGeneratorForbiddenTimeNeverPlaced(t *testing.T) {
	// A lab in the 08:00-10:00 slot hits the forbidden early-morning range
	// on every single date, so the walk exhausts the range with nothing
	// scheduled.
	courses := append(fixtureCourses(), models.Course{
		ID: "course-tp", Code: "MATH-TP", Name: "Analysis labs",
		Type: models.CourseTypeLab, TotalHours: 4, MaxStudents: 35,
		Priority: 3, IsActive: true,
	})
	sessions := append(fixtureSessions(), models.Session{
		ID: "sess-tp", ScheduleID: "sched-1", CourseID: "course-tp",
		TeacherID: "teacher-2", TimeSlotID: strPtr("slot-mon-am"),
		ExpectedStudents: 35,
	})
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   courses,
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, generationRange(), nil).Generate()

	assert.False(t, result.Success)
	for _, occ := range result.Occurrences {
		assert.NotEqual(t, "sess-tp", occ.SessionID)
	}
	assert.Equal(t, 6, result.TotalPlanned)
	assert.Equal(t, 4, result.TotalScheduled)
}

func TestGeneratorExcludedDatesSkipped(t *testing.T) {
	cfg := generationRange()
	cfg.ExcludedDates = map[string]struct{}{"2026-01-05": {}}

	result := NewGenerator(fixtureSnapshot(), cfg, nil).Generate()

	require.True(t, result.Success)
	var dates []string
	for _, occ := range result.Occurrences {
		if occ.SessionID == "sess-cm" {
			dates = append(dates, dateKey(occ.Date))
		}
	}
	assert.Equal(t, []string{"2026-01-12", "2026-01-19"}, dates)
}

func TestGeneratorTeacherDoubleBookingAvoided(t *testing.T) {
	// Two sessions sharing a teacher and a slot, over a range with exactly
	// two mondays: the lecture claims them both and the tutorial can never
	// be placed even though a second room is free.
	sessions := fixtureSessions()
	sessions[1].TeacherID = "teacher-1"
	sessions[1].TimeSlotID = strPtr("slot-mon-am")
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	cfg := generationRange()
	cfg.EndDate = time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	result := NewGenerator(snap, cfg, nil).Generate()

	assert.False(t, result.Success)
	for _, occ := range result.Occurrences {
		assert.Equal(t, "sess-cm", occ.SessionID,
			"the lower-priority session must lose the teacher to the lecture")
	}
	assert.Empty(t, result.Conflicts)

	var shortfall *Blockage
	for i := range result.Blockages {
		if result.Blockages[i].Type == BlockageInsufficientOccurrences {
			shortfall = &result.Blockages[i]
		}
	}
	require.NotNil(t, shortfall, "the starved tutorial must report its shortfall")
	assert.Equal(t, "MATH-TD", shortfall.CourseCode)
	assert.Contains(t, shortfall.Reasons, "the teacher is already booked in this time window")
}

func TestGeneratorPrerequisiteBlocksWithoutLecture(t *testing.T) {
	// Only the tutorial is in the schedule: pre-validation flags the missing
	// lecture, and without conflict tolerance no occurrence can be placed.
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  fixtureSessions()[1:],
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, generationRange(), nil).Generate()

	assert.False(t, result.Success)
	assert.Empty(t, result.Occurrences)
	require.NotEmpty(t, result.Blockages)
	assert.Equal(t, BlockageMissingPrerequisite, result.Blockages[0].Type)
	assert.Equal(t, SeverityHigh, result.Blockages[0].Severity)
}

func TestGeneratorAllowConflictsRelaxesPrerequisite(t *testing.T) {
	cfg := generationRange()
	cfg.AllowConflicts = true
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  fixtureSessions()[1:],
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, cfg, nil).Generate()

	assert.NotEmpty(t, result.Occurrences)
	for _, occ := range result.Occurrences {
		assert.Equal(t, "sess-td", occ.SessionID)
	}
}

func TestGeneratorWarnsOnHighPenaltyPlacements(t *testing.T) {
	// Tutorial in a tuesday-morning slot: off the preferred afternoon window
	// and badly spaced from the lecture, still schedulable.
	sessions := fixtureSessions()
	sessions[1].TimeSlotID = strPtr("slot-tue-am")
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  sessions,
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, generationRange(), nil).Generate()

	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "sess-td", result.Warnings[0].SessionID)
	assert.Greater(t, result.Warnings[0].Penalty, warningPenaltyThreshold)
}

func TestGeneratorUnboundedHoursFillRange(t *testing.T) {
	// A course without a positive hour total has no quota: the walk fills
	// every monday in the range and the run still counts as complete.
	courses := fixtureCourses()
	courses[0].TotalHours = 0
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  fixtureSessions()[:1],
		Courses:   courses,
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, generationRange(), nil).Generate()

	require.True(t, result.Success)
	require.Len(t, result.Occurrences, 4)
	var dates []string
	for _, occ := range result.Occurrences {
		dates = append(dates, dateKey(occ.Date))
	}
	assert.Equal(t, []string{"2026-01-05", "2026-01-12", "2026-01-19", "2026-01-26"}, dates)
	assert.Equal(t, 4, result.TotalPlanned)
	assert.InDelta(t, 1.0, result.CompletionRatio, 1e-9)
}

func TestGeneratorShortfallReportedAsBlockage(t *testing.T) {
	// One monday in range for a two-occurrence quota: half the course is
	// missing, and the caller must learn which session fell short and what
	// to change.
	cfg := generationRange()
	cfg.EndDate = time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	snap := NewSnapshot(SnapshotInput{
		Schedule:  models.Schedule{ID: "sched-1"},
		Sessions:  fixtureSessions()[:1],
		Courses:   fixtureCourses(),
		Teachers:  fixtureTeachers(),
		Rooms:     fixtureRooms(),
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, cfg, nil).Generate()

	assert.False(t, result.Success)
	require.Len(t, result.Occurrences, 1, "the partial placement is kept")
	require.Len(t, result.Blockages, 1)
	blockage := result.Blockages[0]
	assert.Equal(t, BlockageInsufficientOccurrences, blockage.Type)
	assert.Equal(t, SeverityHigh, blockage.Severity)
	assert.Equal(t, "MATH-CM", blockage.CourseCode)
	require.NotEmpty(t, blockage.Reasons)
	assert.Contains(t, blockage.Reasons[0], "1 of 2")
	assert.NotEmpty(t, blockage.Suggestions)
}

func TestGeneratorNoCompatibleRoomHalts(t *testing.T) {
	// The only room seats fewer students than either course admits, so
	// pre-validation rejects everything and nothing is placed.
	snap := NewSnapshot(SnapshotInput{
		Schedule: models.Schedule{ID: "sched-1"},
		Sessions: fixtureSessions(),
		Courses:  fixtureCourses(),
		Teachers: fixtureTeachers(),
		Rooms: []models.Room{
			{ID: "room-small", Code: "S101", Capacity: 30, HasProjector: true, IsActive: true},
		},
		TimeSlots: fixtureSlots(),
	})

	result := NewGenerator(snap, generationRange(), nil).Generate()

	assert.False(t, result.Success)
	assert.Empty(t, result.Occurrences)
	require.NotEmpty(t, result.Blockages)
	for _, b := range result.Blockages {
		assert.Equal(t, BlockageNoCompatibleRoom, b.Type)
		assert.Equal(t, SeverityCritical, b.Severity)
	}
}

func TestGeneratorBestRoomTieBreak(t *testing.T) {
	// Two rooms with identical scores for the course: the snapshot keeps
	// rooms sorted by ID, so the scan settles on the lowest one.
	snap := NewSnapshot(SnapshotInput{
		Schedule: models.Schedule{ID: "sched-1"},
		Sessions: fixtureSessions(),
		Courses:  fixtureCourses(),
		Teachers: fixtureTeachers(),
		Rooms: []models.Room{
			{ID: "room-b", Code: "B201", Capacity: 40, HasProjector: true, IsActive: true},
			{ID: "room-a", Code: "A101", Capacity: 40, HasProjector: true, IsActive: true},
		},
		TimeSlots: fixtureSlots(),
	})
	gen := NewGenerator(snap, generationRange(), nil)

	roomID, found := gen.bestRoom(
		fixtureCourses()[0],
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		ClockRange{Start: 8 * 60, End: 10 * 60},
		newBookings(),
	)

	require.True(t, found)
	assert.Equal(t, "room-a", roomID)
}

func TestFindDuplicateBookings(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	occurrences := []models.SessionOccurrence{
		{SessionID: "s1", Date: day, StartTime: "08:00", RoomID: "room-a"},
		{SessionID: "s2", Date: day, StartTime: "08:00", RoomID: "room-a"},
		{SessionID: "s3", Date: day, StartTime: "10:00", RoomID: "room-a"},
	}

	conflicts := findDuplicateBookings(occurrences)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "2026-01-05", conflicts[0].Date)
	assert.Equal(t, "08:00", conflicts[0].StartTime)
	assert.Equal(t, "room-a", conflicts[0].RoomID)
	assert.ElementsMatch(t, []string{"s1", "s2"}, conflicts[0].Sessions)
}

func TestFirstWeekday(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, monday, firstWeekday(monday, time.Monday))
	assert.Equal(t, monday.AddDate(0, 0, 3), firstWeekday(monday, time.Thursday))
	// A weekday already past rolls into the next week.
	assert.Equal(t, monday.AddDate(0, 0, 7), firstWeekday(monday.AddDate(0, 0, 1), time.Monday))
}
