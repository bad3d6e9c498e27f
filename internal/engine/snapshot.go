package engine

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// Snapshot is the read model the engine operates on: one schedule's sessions
// plus the reference data they point at, loaded once up front. Algorithms
// never touch the entity store directly; a lookup that misses simply
// contributes nothing to scoring.
type Snapshot struct {
	ScheduleID   string
	CurriculumID *string
	Sessions     []models.Session
	Rooms        []models.Room
	TimeSlots    []models.TimeSlot

	sessionsByID map[string]models.Session
	courses      map[string]models.Course
	teachers     map[string]models.Teacher
	roomsByID    map[string]models.Room
	slotsByID    map[string]models.TimeSlot

	slotStart map[string]int
	slotEnd   map[string]int
	slotDay   map[string]time.Weekday

	preferences      map[string][]models.CourseRoomPreference
	preferredWindows map[string][]preferredWindow
}

type preferredWindow struct {
	Day   time.Weekday
	Start int
	End   int
}

// SnapshotInput bundles the raw rows a snapshot is built from.
type SnapshotInput struct {
	Schedule    models.Schedule
	Sessions    []models.Session
	Courses     []models.Course
	Teachers    []models.Teacher
	Rooms       []models.Room
	TimeSlots   []models.TimeSlot
	Preferences []models.CourseRoomPreference
}

// NewSnapshot indexes the input rows. Cancelled sessions and inactive rooms or
// time slots are dropped; rooms are kept sorted by ascending ID so that
// max-score room selection has a deterministic tie-break.
func NewSnapshot(in SnapshotInput) *Snapshot {
	s := &Snapshot{
		ScheduleID:       in.Schedule.ID,
		CurriculumID:     in.Schedule.CurriculumID,
		sessionsByID:     make(map[string]models.Session),
		courses:          make(map[string]models.Course, len(in.Courses)),
		teachers:         make(map[string]models.Teacher, len(in.Teachers)),
		roomsByID:        make(map[string]models.Room, len(in.Rooms)),
		slotsByID:        make(map[string]models.TimeSlot, len(in.TimeSlots)),
		slotStart:        make(map[string]int),
		slotEnd:          make(map[string]int),
		slotDay:          make(map[string]time.Weekday),
		preferences:      make(map[string][]models.CourseRoomPreference),
		preferredWindows: make(map[string][]preferredWindow),
	}

	for _, sess := range in.Sessions {
		if sess.IsCancelled {
			continue
		}
		s.Sessions = append(s.Sessions, sess)
		s.sessionsByID[sess.ID] = sess
	}

	for _, course := range in.Courses {
		s.courses[course.ID] = course
		s.preferredWindows[course.ID] = parsePreferredWindows(course)
	}

	for _, teacher := range in.Teachers {
		s.teachers[teacher.ID] = teacher
	}

	for _, room := range in.Rooms {
		if !room.IsActive {
			continue
		}
		s.Rooms = append(s.Rooms, room)
		s.roomsByID[room.ID] = room
	}
	sort.Slice(s.Rooms, func(i, j int) bool { return s.Rooms[i].ID < s.Rooms[j].ID })

	for _, slot := range in.TimeSlots {
		if !slot.IsActive {
			continue
		}
		s.TimeSlots = append(s.TimeSlots, slot)
		s.slotsByID[slot.ID] = slot
		if start, ok := ParseClock(slot.StartTime); ok {
			s.slotStart[slot.ID] = start
		}
		if end, ok := ParseClock(slot.EndTime); ok {
			s.slotEnd[slot.ID] = end
		}
		if day, ok := slot.Weekday(); ok {
			s.slotDay[slot.ID] = day
		}
	}

	for _, pref := range in.Preferences {
		s.preferences[pref.CourseID] = append(s.preferences[pref.CourseID], pref)
	}

	return s
}

func parsePreferredWindows(course models.Course) []preferredWindow {
	if len(course.PreferredTimes) == 0 {
		return nil
	}
	var raw []models.PreferredWindow
	_ = json.Unmarshal(course.PreferredTimes, &raw) // best-effort, malformed JSON means no preference
	windows := make([]preferredWindow, 0, len(raw))
	for _, w := range raw {
		day, ok := dayFromName(w.DayOfWeek)
		if !ok {
			continue
		}
		start, okStart := ParseClock(w.StartTime)
		end, okEnd := ParseClock(w.EndTime)
		if !okStart || !okEnd {
			continue
		}
		windows = append(windows, preferredWindow{Day: day, Start: start, End: end})
	}
	return windows
}

func dayFromName(name string) (time.Weekday, bool) {
	return models.TimeSlot{DayOfWeek: name}.Weekday()
}

// SessionByID returns a session from the snapshot.
func (s *Snapshot) SessionByID(id string) (models.Session, bool) {
	sess, ok := s.sessionsByID[id]
	return sess, ok
}

// CourseByID returns a course from the snapshot.
func (s *Snapshot) CourseByID(id string) (models.Course, bool) {
	course, ok := s.courses[id]
	return course, ok
}

// CourseForSession resolves the course a session teaches.
func (s *Snapshot) CourseForSession(sess models.Session) (models.Course, bool) {
	return s.CourseByID(sess.CourseID)
}

// TeacherByID returns a teacher from the snapshot.
func (s *Snapshot) TeacherByID(id string) (models.Teacher, bool) {
	teacher, ok := s.teachers[id]
	return teacher, ok
}

// RoomByID returns a room from the snapshot.
func (s *Snapshot) RoomByID(id string) (models.Room, bool) {
	room, ok := s.roomsByID[id]
	return room, ok
}

// TimeSlotByID returns a time slot from the snapshot.
func (s *Snapshot) TimeSlotByID(id string) (models.TimeSlot, bool) {
	slot, ok := s.slotsByID[id]
	return slot, ok
}

// SlotWindow resolves a slot's parsed (weekday, start, end) triple.
func (s *Snapshot) SlotWindow(slotID string) (time.Weekday, int, int, bool) {
	day, okDay := s.slotDay[slotID]
	start, okStart := s.slotStart[slotID]
	end, okEnd := s.slotEnd[slotID]
	return day, start, end, okDay && okStart && okEnd
}

// CompatibleRooms returns rooms satisfying the course's capacity and feature
// requirements, in ascending ID order.
func (s *Snapshot) CompatibleRooms(course models.Course) []models.Room {
	var result []models.Room
	for _, room := range s.Rooms {
		if room.Satisfies(course) {
			result = append(result, room)
		}
	}
	return result
}

// CapacityRooms returns rooms with at least the given number of seats, the
// pool random initialization and mutation draw from.
func (s *Snapshot) CapacityRooms(expectedStudents int) []models.Room {
	var result []models.Room
	for _, room := range s.Rooms {
		if room.Capacity >= expectedStudents {
			result = append(result, room)
		}
	}
	return result
}

// RoomPreferences returns the class room preferences declared for a course.
func (s *Snapshot) RoomPreferences(courseID string) []models.CourseRoomPreference {
	return s.preferences[courseID]
}

// preferredWindowsFor returns the parsed preferred windows for a course, nil
// when none are declared.
func (s *Snapshot) preferredWindowsFor(courseID string) []preferredWindow {
	return s.preferredWindows[courseID]
}
