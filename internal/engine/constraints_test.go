package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oapet-edu/timetable-api/internal/models"
)

func TestCheckTimePreference(t *testing.T) {
	checker := NewConstraintChecker()

	t.Run("lecture in preferred morning window", func(t *testing.T) {
		valid, penalty := checker.CheckTimePreference(models.CourseTypeLecture, 9*60)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})

	t.Run("lecture outside preferred window costs half weight", func(t *testing.T) {
		valid, penalty := checker.CheckTimePreference(models.CourseTypeLecture, 15*60)
		assert.True(t, valid)
		assert.InDelta(t, 0.25, penalty, 1e-9)
	})

	t.Run("lab in forbidden early morning is invalid", func(t *testing.T) {
		valid, penalty := checker.CheckTimePreference(models.CourseTypeLab, 9*60)
		assert.False(t, valid)
		assert.InDelta(t, 1.0, penalty, 1e-9)
	})

	t.Run("exam in forbidden evening is invalid", func(t *testing.T) {
		valid, penalty := checker.CheckTimePreference(models.CourseTypeExam, 18*60)
		assert.False(t, valid)
		assert.InDelta(t, 0.9, penalty, 1e-9)
	})

	t.Run("unknown type is always valid", func(t *testing.T) {
		valid, penalty := checker.CheckTimePreference(models.CourseType("SEMINAR"), 3*60)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})
}

func TestCheckDayPreference(t *testing.T) {
	checker := NewConstraintChecker()

	t.Run("exam on forbidden monday is invalid", func(t *testing.T) {
		valid, penalty := checker.CheckDayPreference(models.CourseTypeExam, time.Monday)
		assert.False(t, valid)
		assert.InDelta(t, 0.9, penalty, 1e-9)
	})

	t.Run("lecture off preferred days costs partial weight", func(t *testing.T) {
		valid, penalty := checker.CheckDayPreference(models.CourseTypeLecture, time.Friday)
		assert.True(t, valid)
		assert.InDelta(t, 0.15, penalty, 1e-9)
	})

	t.Run("lab on preferred thursday", func(t *testing.T) {
		valid, penalty := checker.CheckDayPreference(models.CourseTypeLab, time.Thursday)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})

	t.Run("tutorial has no day preference", func(t *testing.T) {
		valid, penalty := checker.CheckDayPreference(models.CourseTypeTutorial, time.Saturday)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})
}

func TestCheckPrerequisite(t *testing.T) {
	checker := NewConstraintChecker()
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("tutorial without lecture history is invalid", func(t *testing.T) {
		valid, penalty := checker.CheckPrerequisite(
			models.CourseTypeTutorial, "MATH-TD", map[string][]time.Time{}, time.Time{}, 0)
		assert.False(t, valid)
		assert.InDelta(t, 0.8, penalty, 1e-9)
	})

	t.Run("lab requires a tutorial not a lecture", func(t *testing.T) {
		history := map[string][]time.Time{"MATH-CM": {monday}}
		valid, _ := checker.CheckPrerequisite(
			models.CourseTypeLab, "MATH-TP", history, time.Time{}, 0)
		assert.False(t, valid)

		history["MATH-TD"] = []time.Time{monday}
		valid, penalty := checker.CheckPrerequisite(
			models.CourseTypeLab, "MATH-TP", history, time.Time{}, 0)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})

	t.Run("lecture never needs a predecessor", func(t *testing.T) {
		valid, penalty := checker.CheckPrerequisite(
			models.CourseTypeLecture, "MATH-CM", map[string][]time.Time{}, time.Time{}, 0)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})

	t.Run("tutorial day gap scoring", func(t *testing.T) {
		history := map[string][]time.Time{"MATH-CM": {monday}}

		cases := []struct {
			name    string
			date    time.Time
			start   int
			penalty float64
		}{
			{"two days later is ideal", monday.AddDate(0, 0, 2), 14 * 60, 0},
			{"five days later is acceptable", monday.AddDate(0, 0, 5), 14 * 60, 0.2},
			{"same day afternoon tolerated", monday, 14 * 60, 0.1},
			{"same day morning discouraged", monday, 9 * 60, 0.5},
			{"too far out", monday.AddDate(0, 0, 10), 14 * 60, 0.6},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				valid, penalty := checker.CheckPrerequisite(
					models.CourseTypeTutorial, "MATH-TD", history, tc.date, tc.start)
				assert.True(t, valid)
				assert.InDelta(t, tc.penalty, penalty, 1e-9)
			})
		}
	})
}

func TestCheckMaxPerDay(t *testing.T) {
	checker := NewConstraintChecker()
	day := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

	t.Run("under the limit", func(t *testing.T) {
		history := map[string][]time.Time{"MATH-CM": {day}}
		valid, penalty := checker.CheckMaxPerDay(models.CourseTypeLecture, day, "MATH-CM", history)
		assert.True(t, valid)
		assert.Zero(t, penalty)
	})

	t.Run("at the limit rejects", func(t *testing.T) {
		history := map[string][]time.Time{"MATH-CM": {day, day}}
		valid, penalty := checker.CheckMaxPerDay(models.CourseTypeLecture, day, "MATH-CM", history)
		assert.False(t, valid)
		assert.InDelta(t, 0.35, penalty, 1e-9)
	})

	t.Run("other days do not count", func(t *testing.T) {
		history := map[string][]time.Time{"MATH-CM": {day.AddDate(0, 0, -1), day.AddDate(0, 0, -2)}}
		valid, _ := checker.CheckMaxPerDay(models.CourseTypeLecture, day, "MATH-CM", history)
		assert.True(t, valid)
	})
}

func TestPredecessorCode(t *testing.T) {
	assert.Equal(t, "MATH-CM", PredecessorCode("MATH-TD", models.CourseTypeLecture))
	assert.Equal(t, "PHYS-TD", PredecessorCode("PHYS-TP", models.CourseTypeTutorial))
}
