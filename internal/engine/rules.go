package engine

import (
	"time"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// TypeRule encodes the scheduling policy for one pedagogical course type:
// when it may run, what must run before it, and how strongly violations count.
type TypeRule struct {
	Type                models.CourseType
	PreferredTimes      []ClockRange
	ForbiddenTimes      []ClockRange
	PreferredDays       []time.Weekday
	ForbiddenDays       []time.Weekday
	MinDurationHours    float64
	MaxDurationHours    float64
	RequiresPredecessor bool
	PredecessorType     models.CourseType
	MaxPerDay           int
	PenaltyWeight       float64
}

// courseTypeRules is built once and never mutated afterwards. Accessors hand
// out value copies.
var courseTypeRules = map[models.CourseType]TypeRule{
	models.CourseTypeLecture: {
		Type:             models.CourseTypeLecture,
		PreferredTimes:   []ClockRange{clockRange(8, 0, 12, 0)},
		PreferredDays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday},
		MinDurationHours: 1.5,
		MaxDurationHours: 3.0,
		MaxPerDay:        2,
		PenaltyWeight:    0.5,
	},
	models.CourseTypeTutorial: {
		Type:                models.CourseTypeTutorial,
		PreferredTimes:      []ClockRange{clockRange(13, 0, 18, 0)},
		MinDurationHours:    1.5,
		MaxDurationHours:    2.0,
		RequiresPredecessor: true,
		PredecessorType:     models.CourseTypeLecture,
		MaxPerDay:           3,
		PenaltyWeight:       0.8,
	},
	models.CourseTypeLab: {
		Type:                models.CourseTypeLab,
		PreferredTimes:      []ClockRange{clockRange(8, 0, 17, 0)},
		ForbiddenTimes:      []ClockRange{clockRange(8, 0, 10, 0)},
		PreferredDays:       []time.Weekday{time.Thursday, time.Friday},
		MinDurationHours:    2.0,
		MaxDurationHours:    4.0,
		RequiresPredecessor: true,
		PredecessorType:     models.CourseTypeTutorial,
		MaxPerDay:           1,
		PenaltyWeight:       1.0,
	},
	models.CourseTypeGuidedWork: {
		Type:             models.CourseTypeGuidedWork,
		PreferredTimes:   []ClockRange{clockRange(14, 0, 18, 0)},
		PreferredDays:    []time.Weekday{time.Thursday, time.Friday},
		MinDurationHours: 1.5,
		MaxDurationHours: 2.0,
		MaxPerDay:        2,
		PenaltyWeight:    0.3,
	},
	models.CourseTypeConference: {
		Type:             models.CourseTypeConference,
		PreferredTimes:   []ClockRange{clockRange(10, 0, 12, 0), clockRange(14, 0, 16, 0)},
		MinDurationHours: 1.0,
		MaxDurationHours: 2.0,
		MaxPerDay:        1,
		PenaltyWeight:    0.4,
	},
	models.CourseTypeExam: {
		Type:             models.CourseTypeExam,
		PreferredTimes:   []ClockRange{clockRange(8, 0, 12, 0)},
		ForbiddenTimes:   []ClockRange{clockRange(17, 0, 19, 0)},
		ForbiddenDays:    []time.Weekday{time.Monday},
		MinDurationHours: 1.0,
		MaxDurationHours: 4.0,
		MaxPerDay:        1,
		PenaltyWeight:    0.9,
	},
}

// RuleFor returns the rule for a course type. Unknown types have no rule and
// are treated as always valid by the checker.
func RuleFor(t models.CourseType) (TypeRule, bool) {
	rule, ok := courseTypeRules[t]
	return rule, ok
}
