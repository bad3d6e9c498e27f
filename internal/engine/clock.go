package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Wall-clock times inside the engine are minutes since midnight. Parsing
// happens once at the snapshot boundary; everything downstream is integer
// arithmetic.

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatClock renders minutes since midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// overlapBufferMinutes is the mandatory gap between back-to-back sessions in
// the same room or for the same teacher.
const overlapBufferMinutes = 5

// windowsOverlap reports whether two [start,end) windows collide, honoring the
// 5-minute buffer: they do not overlap only when one ends at least 5 minutes
// before the other starts.
func windowsOverlap(start1, end1, start2, end2 int) bool {
	return !(end1+overlapBufferMinutes <= start2 || end2+overlapBufferMinutes <= start1)
}

// ClockRange is an inclusive wall-clock interval.
type ClockRange struct {
	Start int
	End   int
}

// Contains reports whether t falls inside the range, bounds included.
func (r ClockRange) Contains(t int) bool {
	return r.Start <= t && t <= r.End
}

func clockRange(startHour, startMin, endHour, endMin int) ClockRange {
	return ClockRange{Start: startHour*60 + startMin, End: endHour*60 + endMin}
}
