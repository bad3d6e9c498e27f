package models

import "time"

// TimeSlot is a (day-of-week, start, end) tuple. Times are stored as "HH:MM"
// wall clock strings.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var dayNameIndex = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Weekday resolves the slot's day name; ok is false for an unknown name.
func (t TimeSlot) Weekday() (time.Weekday, bool) {
	day, ok := dayNameIndex[t.DayOfWeek]
	return day, ok
}
