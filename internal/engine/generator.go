package engine

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// Blockage types reported by pre-validation.
const (
	BlockageNoRooms                 = "no_rooms"
	BlockageNoTeacher               = "no_teacher"
	BlockageNoCompatibleRoom        = "no_compatible_room"
	BlockageNoTimeSlot              = "no_timeslot"
	BlockageMissingPrerequisite     = "missing_prerequisite"
	BlockageInsufficientOccurrences = "insufficient_occurrences"
)

// Blockage severities. Critical blockages exclude the course from generation;
// high ones are surfaced but scheduling proceeds.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
)

const (
	defaultMinCompletionRatio     = 0.8
	defaultMaxConsecutiveFailures = 10
	warningPenaltyThreshold       = 0.5
)

// Room preference score boosts by declared priority level.
const (
	mandatoryRoomBonus  = 1000.0
	preferredRoomBonus  = 100.0
	acceptableRoomBonus = 10.0
	roomReuseMalus      = 50.0
)

// GenerationConfig drives one generation run over a date range.
type GenerationConfig struct {
	StartDate              time.Time
	EndDate                time.Time
	ExcludedDates          map[string]struct{}
	AllowConflicts         bool
	MinCompletionRatio     float64
	MaxConsecutiveFailures int
}

// IsDateExcluded reports whether the date was blacked out.
func (c GenerationConfig) IsDateExcluded(date time.Time) bool {
	_, excluded := c.ExcludedDates[dateKey(date)]
	return excluded
}

func (c GenerationConfig) minCompletionRatio() float64 {
	if c.MinCompletionRatio <= 0 {
		return defaultMinCompletionRatio
	}
	return c.MinCompletionRatio
}

func (c GenerationConfig) maxConsecutiveFailures() int {
	if c.MaxConsecutiveFailures <= 0 {
		return defaultMaxConsecutiveFailures
	}
	return c.MaxConsecutiveFailures
}

// Blockage explains why a course cannot be scheduled as requested.
type Blockage struct {
	CourseID    string   `json:"course_id,omitempty"`
	CourseCode  string   `json:"course_code,omitempty"`
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Reasons     []string `json:"reasons"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ConflictDescriptor is a duplicate room booking found by final validation.
type ConflictDescriptor struct {
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	RoomID    string   `json:"room_id"`
	Sessions  []string `json:"sessions"`
}

// Warning flags a placement that succeeded with a noticeable soft-constraint
// penalty.
type Warning struct {
	SessionID  string  `json:"session_id"`
	CourseCode string  `json:"course_code"`
	Date       string  `json:"date"`
	Penalty    float64 `json:"penalty"`
}

// GenerationResult is the outcome of a full generation run. Occurrences are
// kept even on failure so the caller can inspect the partial timetable.
type GenerationResult struct {
	Success         bool                       `json:"success"`
	Occurrences     []models.SessionOccurrence `json:"occurrences"`
	Blockages       []Blockage                 `json:"blockages,omitempty"`
	Conflicts       []ConflictDescriptor       `json:"conflicts,omitempty"`
	Warnings        []Warning                  `json:"warnings,omitempty"`
	TotalPlanned    int                        `json:"total_planned"`
	TotalScheduled  int                        `json:"total_scheduled"`
	CompletionRatio float64                    `json:"completion_ratio"`
}

// Generator builds dated session occurrences for a schedule over a date range,
// walking sessions in course-priority order and placing each weekly occurrence
// greedily: constraint checks first, then the best free room, then teacher
// availability.
type Generator struct {
	snap    *Snapshot
	cfg     GenerationConfig
	checker *ConstraintChecker
	logger  *zap.Logger
}

// NewGenerator builds a generator. A nil logger is replaced with a no-op one.
func NewGenerator(snap *Snapshot, cfg GenerationConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{snap: snap, cfg: cfg, checker: NewConstraintChecker(), logger: logger}
}

// bookings tracks what has been placed so far during one run.
type bookings struct {
	roomBusy    map[string]map[string][]ClockRange // date -> room -> windows
	teacherBusy map[string]map[string][]ClockRange // date -> teacher -> windows
	roomUsage   map[string]map[string]int          // date -> room -> count
	history     map[string][]time.Time             // course code -> dates
}

func newBookings() *bookings {
	return &bookings{
		roomBusy:    make(map[string]map[string][]ClockRange),
		teacherBusy: make(map[string]map[string][]ClockRange),
		roomUsage:   make(map[string]map[string]int),
		history:     make(map[string][]time.Time),
	}
}

func (b *bookings) roomFree(date, roomID string, start, end int) bool {
	for _, w := range b.roomBusy[date][roomID] {
		if windowsOverlap(start, end, w.Start, w.End) {
			return false
		}
	}
	return true
}

func (b *bookings) teacherFree(date, teacherID string, start, end int) bool {
	for _, w := range b.teacherBusy[date][teacherID] {
		if windowsOverlap(start, end, w.Start, w.End) {
			return false
		}
	}
	return true
}

func (b *bookings) record(date time.Time, roomID, teacherID, courseCode string, start, end int) {
	key := dateKey(date)
	if b.roomBusy[key] == nil {
		b.roomBusy[key] = make(map[string][]ClockRange)
	}
	if b.teacherBusy[key] == nil {
		b.teacherBusy[key] = make(map[string][]ClockRange)
	}
	if b.roomUsage[key] == nil {
		b.roomUsage[key] = make(map[string]int)
	}
	b.roomBusy[key][roomID] = append(b.roomBusy[key][roomID], ClockRange{Start: start, End: end})
	b.teacherBusy[key][teacherID] = append(b.teacherBusy[key][teacherID], ClockRange{Start: start, End: end})
	b.roomUsage[key][roomID]++
	b.history[courseCode] = append(b.history[courseCode], date)
}

// Generate runs the full pipeline: pre-validation, per-session weekly walks,
// and final duplicate detection.
func (g *Generator) Generate() *GenerationResult {
	result := &GenerationResult{}

	sessions, blockages := g.preValidate()
	result.Blockages = blockages
	if len(sessions) == 0 && len(blockages) > 0 {
		g.logger.Warn("generation blocked before scheduling",
			zap.String("schedule_id", g.snap.ScheduleID),
			zap.Int("blockages", len(blockages)))
		return result
	}

	books := newBookings()
	allComplete := true

	for _, sess := range sessions {
		course, ok := g.snap.CourseForSession(sess)
		if !ok {
			continue
		}
		occurrences, warnings, planned, failReasons := g.scheduleSession(sess, course, books)
		result.Occurrences = append(result.Occurrences, occurrences...)
		result.Warnings = append(result.Warnings, warnings...)
		result.TotalPlanned += planned
		result.TotalScheduled += len(occurrences)

		if planned > 0 && float64(len(occurrences))/float64(planned) < g.cfg.minCompletionRatio() {
			allComplete = false
			reasons := append([]string{fmt.Sprintf(
				"scheduled %d of %d occurrences for session %s", len(occurrences), planned, sess.ID)},
				failReasons...)
			result.Blockages = append(result.Blockages, Blockage{
				CourseID:   course.ID,
				CourseCode: course.Code,
				Type:       BlockageInsufficientOccurrences,
				Severity:   SeverityHigh,
				Reasons:    reasons,
				Suggestions: []string{
					"extend the generation date range",
					"add compatible rooms",
					"widen teacher availability",
				},
			})
			g.logger.Warn("session under completion threshold",
				zap.String("session_id", sess.ID),
				zap.String("course", course.Code),
				zap.Int("planned", planned),
				zap.Int("scheduled", len(occurrences)))
		}
	}

	result.Conflicts = findDuplicateBookings(result.Occurrences)
	if result.TotalPlanned > 0 {
		result.CompletionRatio = float64(result.TotalScheduled) / float64(result.TotalPlanned)
	}
	result.Success = allComplete && len(result.Conflicts) == 0 && !hasCritical(result.Blockages)

	g.logger.Info("generation finished",
		zap.String("schedule_id", g.snap.ScheduleID),
		zap.Bool("success", result.Success),
		zap.Int("scheduled", result.TotalScheduled),
		zap.Int("planned", result.TotalPlanned),
		zap.Int("conflicts", len(result.Conflicts)))
	return result
}

// preValidate filters sessions down to the schedulable ones and reports a
// blockage for everything it rejects. Missing prerequisites are reported at
// high severity only: the predecessor may be scheduled by this very run.
func (g *Generator) preValidate() ([]models.Session, []Blockage) {
	var blockages []Blockage

	if len(g.snap.Rooms) == 0 {
		blockages = append(blockages, Blockage{
			Type:     BlockageNoRooms,
			Severity: SeverityCritical,
			Reasons:  []string{"no active rooms available"},
			Suggestions: []string{
				"activate at least one room before generating",
			},
		})
		return nil, blockages
	}

	presentCodes := make(map[string]struct{})
	for _, sess := range g.snap.Sessions {
		if course, ok := g.snap.CourseForSession(sess); ok {
			presentCodes[course.Code] = struct{}{}
		}
	}

	var schedulable []models.Session
	for _, sess := range g.sessionsByPriority() {
		course, ok := g.snap.CourseForSession(sess)
		if !ok {
			continue
		}

		blocked := false

		if teacher, ok := g.snap.TeacherByID(sess.TeacherID); !ok || !teacher.IsActive {
			blockages = append(blockages, Blockage{
				CourseID:   course.ID,
				CourseCode: course.Code,
				Type:       BlockageNoTeacher,
				Severity:   SeverityCritical,
				Reasons:    []string{fmt.Sprintf("no active teacher for session %s", sess.ID)},
				Suggestions: []string{
					"assign an active teacher to the session",
				},
			})
			blocked = true
		}

		if len(g.snap.CompatibleRooms(course)) == 0 {
			blockages = append(blockages, Blockage{
				CourseID:   course.ID,
				CourseCode: course.Code,
				Type:       BlockageNoCompatibleRoom,
				Severity:   SeverityCritical,
				Reasons: []string{fmt.Sprintf(
					"no room satisfies capacity %d and the required equipment", course.MaxStudents)},
				Suggestions: []string{
					"relax the room requirements or add a compatible room",
				},
			})
			blocked = true
		}

		if _, _, ok := g.sessionWindow(sess); !ok {
			blockages = append(blockages, Blockage{
				CourseID:   course.ID,
				CourseCode: course.Code,
				Type:       BlockageNoTimeSlot,
				Severity:   SeverityCritical,
				Reasons:    []string{fmt.Sprintf("session %s has no usable time slot or specific times", sess.ID)},
				Suggestions: []string{
					"attach an active time slot or set specific start and end times",
				},
			})
			blocked = true
		}

		if rule, ok := RuleFor(course.Type); ok && rule.RequiresPredecessor {
			predecessor := PredecessorCode(course.Code, rule.PredecessorType)
			if _, present := presentCodes[predecessor]; !present {
				blockages = append(blockages, Blockage{
					CourseID:   course.ID,
					CourseCode: course.Code,
					Type:       BlockageMissingPrerequisite,
					Severity:   SeverityHigh,
					Reasons:    []string{fmt.Sprintf("predecessor course %s is not part of this schedule", predecessor)},
					Suggestions: []string{
						fmt.Sprintf("add %s to the schedule or allow conflicts", predecessor),
					},
				})
			}
		}

		if !blocked {
			schedulable = append(schedulable, sess)
		}
	}

	return schedulable, blockages
}

// sessionsByPriority orders sessions by ascending course priority, with code
// and session ID as deterministic tie-breaks.
func (g *Generator) sessionsByPriority() []models.Session {
	sessions := make([]models.Session, len(g.snap.Sessions))
	copy(sessions, g.snap.Sessions)
	sort.SliceStable(sessions, func(i, j int) bool {
		ci, iOK := g.snap.CourseForSession(sessions[i])
		cj, jOK := g.snap.CourseForSession(sessions[j])
		if !iOK || !jOK {
			return iOK
		}
		if ci.Priority != cj.Priority {
			return ci.Priority < cj.Priority
		}
		if ci.Code != cj.Code {
			return ci.Code < cj.Code
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// sessionWindow resolves the weekly (weekday, start-end) window for a
// session: specific times win over the attached slot's times, the weekday
// always comes from the slot.
func (g *Generator) sessionWindow(sess models.Session) (time.Weekday, ClockRange, bool) {
	if sess.TimeSlotID == nil {
		return 0, ClockRange{}, false
	}
	day, slotStart, slotEnd, ok := g.snap.SlotWindow(*sess.TimeSlotID)
	if !ok {
		return 0, ClockRange{}, false
	}

	start, end := slotStart, slotEnd
	if sess.SpecificStartTime != nil && sess.SpecificEndTime != nil {
		s, okS := ParseClock(*sess.SpecificStartTime)
		e, okE := ParseClock(*sess.SpecificEndTime)
		if okS && okE && e > s {
			start, end = s, e
		}
	}
	if end <= start {
		return 0, ClockRange{}, false
	}
	return day, ClockRange{Start: start, End: end}, true
}

// scheduleSession walks the date range week by week placing occurrences until
// the course's hour quota is filled, the range ends, or too many consecutive
// attempts fail. Courses without a positive hour total have no quota and fill
// the whole range. Distinct failure reasons from the attempts are returned for
// shortfall reporting.
func (g *Generator) scheduleSession(sess models.Session, course models.Course, books *bookings) ([]models.SessionOccurrence, []Warning, int, []string) {
	day, window, ok := g.sessionWindow(sess)
	if !ok {
		return nil, nil, 0, nil
	}

	durationMinutes := window.End - window.Start
	unbounded := course.TotalHours <= 0
	quota := 0
	if !unbounded {
		quota = course.TotalHours * 60 / durationMinutes
		if quota == 0 {
			return nil, nil, 0, nil
		}
	}

	var occurrences []models.SessionOccurrence
	var warnings []Warning
	var failReasons []string
	seenReasons := make(map[string]struct{})
	failures := 0

	date := firstWeekday(g.cfg.StartDate, day)
	for !date.After(g.cfg.EndDate) && (unbounded || len(occurrences) < quota) {
		if g.cfg.IsDateExcluded(date) {
			date = date.AddDate(0, 0, 7)
			continue
		}

		occ, penalty, reason, placed := g.attemptScheduling(sess, course, date, window, books)
		if placed {
			occurrences = append(occurrences, occ)
			failures = 0
			if penalty > warningPenaltyThreshold {
				warnings = append(warnings, Warning{
					SessionID:  sess.ID,
					CourseCode: course.Code,
					Date:       dateKey(date),
					Penalty:    penalty,
				})
			}
		} else {
			if _, seen := seenReasons[reason]; !seen && reason != "" {
				seenReasons[reason] = struct{}{}
				failReasons = append(failReasons, reason)
			}
			failures++
			if failures >= g.cfg.maxConsecutiveFailures() {
				g.logger.Warn("giving up on session after repeated failures",
					zap.String("session_id", sess.ID),
					zap.String("course", course.Code),
					zap.Int("failures", failures))
				break
			}
		}
		date = date.AddDate(0, 0, 7)
	}

	planned := quota
	if unbounded {
		planned = len(occurrences)
	}
	return occurrences, warnings, planned, failReasons
}

// attemptScheduling tries to place one occurrence on a concrete date. A
// forbidden start time always rejects; a missing prerequisite rejects unless
// conflicts are allowed. Day preference and per-day limits only accumulate
// penalty. Rejections carry a human-readable reason.
func (g *Generator) attemptScheduling(
	sess models.Session,
	course models.Course,
	date time.Time,
	window ClockRange,
	books *bookings,
) (models.SessionOccurrence, float64, string, bool) {
	penalty := 0.0

	validTime, p := g.checker.CheckTimePreference(course.Type, window.Start)
	if !validTime {
		return models.SessionOccurrence{}, 0,
			fmt.Sprintf("start time %s is forbidden for %s courses", FormatClock(window.Start), course.Type), false
	}
	penalty += p

	validPrereq, p := g.checker.CheckPrerequisite(course.Type, course.Code, books.history, date, window.Start)
	if !validPrereq && !g.cfg.AllowConflicts {
		return models.SessionOccurrence{}, 0,
			fmt.Sprintf("prerequisite for %s is not scheduled before this date", course.Code), false
	}
	penalty += p

	_, p = g.checker.CheckDayPreference(course.Type, date.Weekday())
	penalty += p
	_, p = g.checker.CheckMaxPerDay(course.Type, date, course.Code, books.history)
	penalty += p

	roomID, found := g.bestRoom(course, date, window, books)
	if !found {
		return models.SessionOccurrence{}, 0, "no compatible room is free in this time window", false
	}

	if !books.teacherFree(dateKey(date), sess.TeacherID, window.Start, window.End) {
		return models.SessionOccurrence{}, 0, "the teacher is already booked in this time window", false
	}

	books.record(date, roomID, sess.TeacherID, course.Code, window.Start, window.End)

	return models.SessionOccurrence{
		SessionID: sess.ID,
		Date:      date,
		StartTime: FormatClock(window.Start),
		EndTime:   FormatClock(window.End),
		RoomID:    roomID,
		TeacherID: sess.TeacherID,
		Status:    models.OccurrenceStatusScheduled,
	}, penalty, "", true
}

// bestRoom scores every free compatible room and keeps the strict maximum.
// Rooms are iterated in ascending ID order, so equal scores resolve to the
// lowest room ID.
func (g *Generator) bestRoom(course models.Course, date time.Time, window ClockRange, books *bookings) (string, bool) {
	key := dateKey(date)
	prefs := make(map[string]int)
	for _, pref := range g.snap.RoomPreferences(course.ID) {
		prefs[pref.RoomID] = pref.Priority
	}

	bestID := ""
	bestScore := 0.0
	for _, room := range g.snap.CompatibleRooms(course) {
		if !books.roomFree(key, room.ID, window.Start, window.End) {
			continue
		}

		score := 0.0
		switch prefs[room.ID] {
		case models.RoomPreferenceMandatory:
			score += mandatoryRoomBonus
		case models.RoomPreferencePreferred:
			score += preferredRoomBonus
		case models.RoomPreferenceAcceptable:
			score += acceptableRoomBonus
		}
		score -= absFloat(float64(room.Capacity - course.MaxStudents))
		score -= roomReuseMalus * float64(books.roomUsage[key][room.ID])

		if bestID == "" || score > bestScore {
			bestID, bestScore = room.ID, score
		}
	}
	return bestID, bestID != ""
}

// findDuplicateBookings reports every (date, start time, room) triple booked
// more than once.
func findDuplicateBookings(occurrences []models.SessionOccurrence) []ConflictDescriptor {
	type key struct {
		date  string
		start string
		room  string
	}
	grouped := make(map[key][]string)
	var order []key
	for _, occ := range occurrences {
		k := key{date: dateKey(occ.Date), start: occ.StartTime, room: occ.RoomID}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], occ.SessionID)
	}

	var conflicts []ConflictDescriptor
	for _, k := range order {
		if sessions := grouped[k]; len(sessions) > 1 {
			conflicts = append(conflicts, ConflictDescriptor{
				Date:      k.date,
				StartTime: k.start,
				RoomID:    k.room,
				Sessions:  sessions,
			})
		}
	}
	return conflicts
}

func hasCritical(blockages []Blockage) bool {
	for _, b := range blockages {
		if b.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// firstWeekday returns the first date at or after from falling on the wanted
// weekday.
func firstWeekday(from time.Time, day time.Weekday) time.Time {
	offset := (int(day) - int(from.Weekday()) + 7) % 7
	return truncateDay(from).AddDate(0, 0, offset)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
