package engine

import "sort"

// Assignment binds one session to a time slot and room. Either field may be
// empty when the session could not be placed.
type Assignment struct {
	TimeSlotID string `json:"time_slot_id,omitempty"`
	RoomID     string `json:"room_id,omitempty"`
}

// Assigned reports whether both halves of the assignment are set.
func (a Assignment) Assigned() bool {
	return a.TimeSlotID != "" && a.RoomID != ""
}

// Solution is one candidate timetable: a session-to-(slot,room) mapping plus
// its last computed scores. Optimizers treat it as a value; Copy before
// mutating a shared one.
type Solution struct {
	ScheduleID  string                `json:"schedule_id"`
	Assignments map[string]Assignment `json:"assignments"`
	Fitness     float64               `json:"fitness"`
	Objectives  map[string]float64    `json:"objectives"`
	Feasible    bool                  `json:"feasible"`
}

// NewSolution returns an empty solution for a schedule.
func NewSolution(scheduleID string) *Solution {
	return &Solution{
		ScheduleID:  scheduleID,
		Assignments: make(map[string]Assignment),
		Objectives:  make(map[string]float64),
	}
}

// Copy returns a deep copy safe to mutate independently.
func (s *Solution) Copy() *Solution {
	clone := &Solution{
		ScheduleID:  s.ScheduleID,
		Assignments: make(map[string]Assignment, len(s.Assignments)),
		Fitness:     s.Fitness,
		Objectives:  make(map[string]float64, len(s.Objectives)),
		Feasible:    s.Feasible,
	}
	for id, a := range s.Assignments {
		clone.Assignments[id] = a
	}
	for name, v := range s.Objectives {
		clone.Objectives[name] = v
	}
	return clone
}

// sessionIDs returns the assigned session IDs in sorted order so that
// position-based operations like crossover are deterministic for a given seed.
func (s *Solution) sessionIDs() []string {
	ids := make([]string, 0, len(s.Assignments))
	for id := range s.Assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// assignedSessionIDs returns, sorted, the sessions that carry a complete
// slot-and-room assignment.
func (s *Solution) assignedSessionIDs() []string {
	ids := make([]string, 0, len(s.Assignments))
	for id, a := range s.Assignments {
		if a.Assigned() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
