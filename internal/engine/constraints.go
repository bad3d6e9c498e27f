package engine

import (
	"time"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// ConstraintChecker evaluates course-type scheduling rules. All checks are
// pure: they return (valid, penalty) pairs and never mutate state. Unknown
// course types fail open (valid, zero penalty).
type ConstraintChecker struct{}

// NewConstraintChecker returns a checker over the static rule table.
func NewConstraintChecker() *ConstraintChecker {
	return &ConstraintChecker{}
}

// CheckTimePreference validates a start time against the type's forbidden and
// preferred ranges. Forbidden is a hard violation carrying the full weight;
// outside the preferred ranges costs half the weight.
func (c *ConstraintChecker) CheckTimePreference(courseType models.CourseType, startMinute int) (bool, float64) {
	rule, ok := RuleFor(courseType)
	if !ok {
		return true, 0
	}

	for _, forbidden := range rule.ForbiddenTimes {
		if forbidden.Contains(startMinute) {
			return false, rule.PenaltyWeight
		}
	}

	preferred := len(rule.PreferredTimes) == 0
	for _, window := range rule.PreferredTimes {
		if window.Contains(startMinute) {
			preferred = true
			break
		}
	}
	if !preferred {
		return true, rule.PenaltyWeight * 0.5
	}
	return true, 0
}

// CheckDayPreference validates a weekday against forbidden and preferred days.
func (c *ConstraintChecker) CheckDayPreference(courseType models.CourseType, weekday time.Weekday) (bool, float64) {
	rule, ok := RuleFor(courseType)
	if !ok {
		return true, 0
	}

	for _, day := range rule.ForbiddenDays {
		if day == weekday {
			return false, rule.PenaltyWeight
		}
	}

	if len(rule.PreferredDays) > 0 {
		for _, day := range rule.PreferredDays {
			if day == weekday {
				return true, 0
			}
		}
		return true, rule.PenaltyWeight * 0.3
	}
	return true, 0
}

// CheckPrerequisite verifies that the predecessor course type has at least one
// scheduled occurrence in history. The predecessor code is derived by swapping
// the type suffix on the course's base code ("MATH-TD" needs "MATH-CM").
//
// For tutorials a soft day-gap score applies when a proposed date is given:
// 2-3 days after the latest lecture is ideal, same-day is tolerated only in
// the afternoon, anything else earns a small penalty without invalidating.
func (c *ConstraintChecker) CheckPrerequisite(
	courseType models.CourseType,
	courseCode string,
	history map[string][]time.Time,
	proposedDate time.Time,
	startMinute int,
) (bool, float64) {
	rule, ok := RuleFor(courseType)
	if !ok || !rule.RequiresPredecessor {
		return true, 0
	}

	predecessorCode := PredecessorCode(courseCode, rule.PredecessorType)
	scheduled := history[predecessorCode]
	if len(scheduled) == 0 {
		return false, rule.PenaltyWeight
	}

	if courseType == models.CourseTypeTutorial && !proposedDate.IsZero() {
		latest := scheduled[0]
		for _, d := range scheduled[1:] {
			if d.After(latest) {
				latest = d
			}
		}
		daysDiff := int(truncateDay(proposedDate).Sub(truncateDay(latest)).Hours() / 24)
		switch {
		case daysDiff >= 2 && daysDiff <= 3:
			return true, 0
		case daysDiff >= 1 && daysDiff <= 5:
			return true, 0.2
		case daysDiff == 0:
			if startMinute >= 13*60 {
				return true, 0.1
			}
			return true, 0.5
		default:
			return true, 0.6
		}
	}

	return true, 0
}

// CheckMaxPerDay rejects a placement once the same course already has the
// rule's maximum number of occurrences on that date.
func (c *ConstraintChecker) CheckMaxPerDay(
	courseType models.CourseType,
	date time.Time,
	courseCode string,
	history map[string][]time.Time,
) (bool, float64) {
	rule, ok := RuleFor(courseType)
	if !ok {
		return true, 0
	}

	scheduled := history[courseCode]
	if len(scheduled) == 0 {
		return true, 0
	}

	day := truncateDay(date)
	count := 0
	for _, d := range scheduled {
		if truncateDay(d).Equal(day) {
			count++
		}
	}
	if count >= rule.MaxPerDay {
		return false, rule.PenaltyWeight * 0.7
	}
	return true, 0
}

// Penalty sums all four constraint penalties for a proposed placement. Used
// as a tie-break score by callers that treat the individual checks as soft.
func (c *ConstraintChecker) Penalty(
	courseType models.CourseType,
	startMinute int,
	weekday time.Weekday,
	date time.Time,
	courseCode string,
	history map[string][]time.Time,
) float64 {
	total := 0.0
	_, p := c.CheckTimePreference(courseType, startMinute)
	total += p
	_, p = c.CheckDayPreference(courseType, weekday)
	total += p
	_, p = c.CheckPrerequisite(courseType, courseCode, history, date, startMinute)
	total += p
	_, p = c.CheckMaxPerDay(courseType, date, courseCode, history)
	total += p
	return total
}

// PredecessorCode derives the code of the required predecessor course:
// base subject code plus the predecessor type suffix.
func PredecessorCode(courseCode string, predecessor models.CourseType) string {
	return models.BaseCode(courseCode) + "-" + string(predecessor)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
