package engine

import (
	"math"
	"sort"
	"time"
)

// Objective names, used as keys in Solution.Objectives and in persisted run
// records.
const (
	ObjectiveMinimizeConflicts  = "minimize_conflicts"
	ObjectiveRoomUtilization    = "maximize_room_utilization"
	ObjectiveTeacherGaps        = "minimize_teacher_gaps"
	ObjectiveBalanceDailyLoad   = "balance_daily_load"
	ObjectiveRespectPreferences = "respect_preferences"
)

const (
	teacherGapThresholdMinutes = 120
	teacherGapBaselineHours    = 1.5
	preferenceNeutralScore     = 0.5
)

// objective pairs a scoring function with its weight and direction.
type objective struct {
	Name     string
	Weight   float64
	Minimize bool
	Compute  func(*ObjectiveCalculator, *Solution) float64
}

// ObjectiveCalculator scores candidate timetables against a snapshot. The
// objective list is fixed at construction; each entry is evaluated on every
// call and written back onto the solution.
type ObjectiveCalculator struct {
	snap       *Snapshot
	objectives []objective
}

// NewObjectiveCalculator builds the calculator with the standard weighted
// objective set.
func NewObjectiveCalculator(snap *Snapshot) *ObjectiveCalculator {
	return &ObjectiveCalculator{
		snap: snap,
		objectives: []objective{
			{Name: ObjectiveMinimizeConflicts, Weight: 1.0, Minimize: true, Compute: (*ObjectiveCalculator).scoreConflicts},
			{Name: ObjectiveRoomUtilization, Weight: 0.3, Minimize: false, Compute: (*ObjectiveCalculator).scoreRoomUtilization},
			{Name: ObjectiveTeacherGaps, Weight: 0.2, Minimize: true, Compute: (*ObjectiveCalculator).scoreTeacherGaps},
			{Name: ObjectiveBalanceDailyLoad, Weight: 0.15, Minimize: true, Compute: (*ObjectiveCalculator).scoreDailyLoadBalance},
			{Name: ObjectiveRespectPreferences, Weight: 0.1, Minimize: false, Compute: (*ObjectiveCalculator).scorePreferences},
		},
	}
}

// CalculateFitness evaluates every objective, stores the raw values on the
// solution, and returns the scalar fitness. Minimized objectives contribute
// negatively so that higher fitness is always better.
func (c *ObjectiveCalculator) CalculateFitness(sol *Solution) float64 {
	fitness := 0.0
	for _, obj := range c.objectives {
		value := obj.Compute(c, sol)
		sol.Objectives[obj.Name] = value
		if obj.Minimize {
			fitness -= value * obj.Weight
		} else {
			fitness += value * obj.Weight
		}
	}
	sol.Fitness = fitness
	sol.Feasible = sol.Objectives[ObjectiveMinimizeConflicts] == 0
	return fitness
}

// scoreConflicts counts double-bookings: every extra occupant of a
// (slot, room) pair or a (teacher, slot) pair adds one.
func (c *ObjectiveCalculator) scoreConflicts(sol *Solution) float64 {
	slotRoom := make(map[[2]string]int)
	teacherSlot := make(map[[2]string]int)

	for sessionID, a := range sol.Assignments {
		if !a.Assigned() {
			continue
		}
		sess, ok := c.snap.SessionByID(sessionID)
		if !ok {
			continue
		}
		slotRoom[[2]string{a.TimeSlotID, a.RoomID}]++
		teacherSlot[[2]string{sess.TeacherID, a.TimeSlotID}]++
	}

	conflicts := 0
	for _, occupants := range slotRoom {
		if occupants > 1 {
			conflicts += occupants - 1
		}
	}
	for _, occupants := range teacherSlot {
		if occupants > 1 {
			conflicts += occupants - 1
		}
	}
	return float64(conflicts)
}

// scoreRoomUtilization measures how evenly the used rooms fill the active
// slot grid: total placements over (rooms used x total slots), capped at 1.
func (c *ObjectiveCalculator) scoreRoomUtilization(sol *Solution) float64 {
	if len(c.snap.TimeSlots) == 0 {
		return 0
	}
	usage := make(map[string]int)
	total := 0
	for _, a := range sol.Assignments {
		if !a.Assigned() {
			continue
		}
		usage[a.RoomID]++
		total++
	}
	if len(usage) == 0 {
		return 0
	}
	utilization := float64(total) / float64(len(usage)*len(c.snap.TimeSlots))
	return math.Min(utilization, 1.0)
}

// scoreTeacherGaps penalizes idle time between a teacher's sessions on the
// same day. A start-to-start gap over two hours adds (gap - 1.5) hours.
func (c *ObjectiveCalculator) scoreTeacherGaps(sol *Solution) float64 {
	type daySlots map[time.Weekday][]int
	byTeacher := make(map[string]daySlots)

	for sessionID, a := range sol.Assignments {
		if !a.Assigned() {
			continue
		}
		sess, ok := c.snap.SessionByID(sessionID)
		if !ok {
			continue
		}
		day, start, _, ok := c.snap.SlotWindow(a.TimeSlotID)
		if !ok {
			continue
		}
		if byTeacher[sess.TeacherID] == nil {
			byTeacher[sess.TeacherID] = make(daySlots)
		}
		byTeacher[sess.TeacherID][day] = append(byTeacher[sess.TeacherID][day], start)
	}

	penalty := 0.0
	for _, days := range byTeacher {
		for _, starts := range days {
			if len(starts) < 2 {
				continue
			}
			sort.Ints(starts)
			for i := 1; i < len(starts); i++ {
				gap := starts[i] - starts[i-1]
				if gap > teacherGapThresholdMinutes {
					penalty += float64(gap)/60.0 - teacherGapBaselineHours
				}
			}
		}
	}
	return penalty
}

// scoreDailyLoadBalance is the population standard deviation of per-weekday
// session counts. Zero means a perfectly flat week.
func (c *ObjectiveCalculator) scoreDailyLoadBalance(sol *Solution) float64 {
	counts := make(map[time.Weekday]int)
	for _, a := range sol.Assignments {
		if !a.Assigned() {
			continue
		}
		day, _, _, ok := c.snap.SlotWindow(a.TimeSlotID)
		if !ok {
			continue
		}
		counts[day]++
	}
	if len(counts) == 0 {
		return 0
	}

	mean := 0.0
	for _, n := range counts {
		mean += float64(n)
	}
	mean /= float64(len(counts))

	variance := 0.0
	for _, n := range counts {
		d := float64(n) - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	return math.Sqrt(variance)
}

// scorePreferences is the fraction of assigned sessions landing inside one of
// their course's preferred windows. Sessions whose course declares no
// preference score neutral.
func (c *ObjectiveCalculator) scorePreferences(sol *Solution) float64 {
	total := 0
	score := 0.0
	for sessionID, a := range sol.Assignments {
		if !a.Assigned() {
			continue
		}
		sess, ok := c.snap.SessionByID(sessionID)
		if !ok {
			continue
		}
		day, start, _, ok := c.snap.SlotWindow(a.TimeSlotID)
		if !ok {
			continue
		}
		total++

		windows := c.snap.preferredWindowsFor(sess.CourseID)
		if len(windows) == 0 {
			score += preferenceNeutralScore
			continue
		}
		for _, w := range windows {
			if w.Day == day && w.Start <= start && start < w.End {
				score++
				break
			}
		}
	}
	if total == 0 {
		return 0
	}
	return score / float64(total)
}
