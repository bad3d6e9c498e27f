package engine

import (
	"math"
	"sort"
)

// Factor names reported by the conflict predictor.
const (
	FactorTeacherOverload         = "teacher_overload"
	FactorRoomCapacityMismatch    = "room_capacity_mismatch"
	FactorTimePreferenceViolation = "time_preference_violation"
	FactorCurriculumClustering    = "curriculum_clustering"
	FactorResourceContention      = "resource_contention"
)

const (
	highRiskThreshold           = 0.7
	overloadAdviceThreshold     = 0.8
	capacityAdviceThreshold     = 0.5
	timePrefAdviceThreshold     = 0.7
	clusteringAdviceThreshold   = 0.6
	contentionAdviceThreshold   = 0.8
	clusteringWeightPerNeighbor = 0.3
)

// ConflictPrediction is the risk assessment for one session.
type ConflictPrediction struct {
	SessionID       string             `json:"session_id"`
	Probability     float64            `json:"probability"`
	Factors         map[string]float64 `json:"factors"`
	HighRisk        bool               `json:"high_risk"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// ConflictPredictor estimates, per session, how likely the current assignment
// is to end up in a conflict. Each factor is normalized to [0,1] and the
// probability is their mean, so the output stays comparable across schedules
// of any size.
type ConflictPredictor struct {
	snap *Snapshot
}

// NewConflictPredictor builds a predictor over a snapshot.
func NewConflictPredictor(snap *Snapshot) *ConflictPredictor {
	return &ConflictPredictor{snap: snap}
}

// PredictSchedule scores every session, high-risk ones first.
func (p *ConflictPredictor) PredictSchedule() []ConflictPrediction {
	predictions := make([]ConflictPrediction, 0, len(p.snap.Sessions))
	for _, sess := range p.snap.Sessions {
		predictions = append(predictions, p.PredictSession(sess.ID))
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})
	return predictions
}

// PredictSession scores one session. Unknown session IDs yield a zero
// prediction.
func (p *ConflictPredictor) PredictSession(sessionID string) ConflictPrediction {
	prediction := ConflictPrediction{
		SessionID: sessionID,
		Factors:   make(map[string]float64),
	}
	sess, ok := p.snap.SessionByID(sessionID)
	if !ok {
		return prediction
	}

	prediction.Factors[FactorTeacherOverload] = p.teacherOverload(sess.TeacherID)
	prediction.Factors[FactorRoomCapacityMismatch] = p.roomCapacityMismatch(sessionID)
	prediction.Factors[FactorTimePreferenceViolation] = p.timePreferenceViolation(sessionID)
	prediction.Factors[FactorCurriculumClustering] = p.curriculumClustering(sessionID)
	prediction.Factors[FactorResourceContention] = p.resourceContention(sessionID)

	total := 0.0
	for _, v := range prediction.Factors {
		total += v
	}
	prediction.Probability = total / float64(len(prediction.Factors))
	prediction.HighRisk = prediction.Probability > highRiskThreshold
	prediction.Recommendations = p.recommendations(prediction.Factors)
	return prediction
}

// teacherOverload is the teacher's scheduled weekly hours over their maximum.
func (p *ConflictPredictor) teacherOverload(teacherID string) float64 {
	teacher, ok := p.snap.TeacherByID(teacherID)
	if !ok || teacher.MaxHoursPerWeek <= 0 {
		return 0
	}
	loadMinutes := 0
	for _, sess := range p.snap.Sessions {
		if sess.TeacherID != teacherID || sess.TimeSlotID == nil {
			continue
		}
		if _, start, end, ok := p.snap.SlotWindow(*sess.TimeSlotID); ok && end > start {
			loadMinutes += end - start
		}
	}
	return math.Min(float64(loadMinutes)/float64(teacher.MaxHoursPerWeek*60), 1.0)
}

// roomCapacityMismatch measures the seat shortfall relative to the expected
// headcount.
func (p *ConflictPredictor) roomCapacityMismatch(sessionID string) float64 {
	sess, _ := p.snap.SessionByID(sessionID)
	if sess.RoomID == nil || sess.ExpectedStudents <= 0 {
		return 0
	}
	room, ok := p.snap.RoomByID(*sess.RoomID)
	if !ok {
		return 0
	}
	shortfall := float64(sess.ExpectedStudents-room.Capacity) / float64(sess.ExpectedStudents)
	return math.Max(0, shortfall)
}

// timePreferenceViolation maps the course-type time rules onto a three-level
// score: forbidden slot 1, off-preferred 0.5, inside the preferred window 0.
func (p *ConflictPredictor) timePreferenceViolation(sessionID string) float64 {
	sess, _ := p.snap.SessionByID(sessionID)
	if sess.TimeSlotID == nil {
		return 0
	}
	course, ok := p.snap.CourseForSession(sess)
	if !ok {
		return 0
	}
	_, start, _, ok := p.snap.SlotWindow(*sess.TimeSlotID)
	if !ok {
		return 0
	}
	rule, ok := RuleFor(course.Type)
	if !ok {
		return 0
	}
	for _, forbidden := range rule.ForbiddenTimes {
		if forbidden.Contains(start) {
			return 1
		}
	}
	for _, preferred := range rule.PreferredTimes {
		if preferred.Contains(start) {
			return 0
		}
	}
	if len(rule.PreferredTimes) == 0 {
		return 0
	}
	return 0.5
}

// curriculumClustering grows with the number of sibling sessions sharing the
// same time slot.
func (p *ConflictPredictor) curriculumClustering(sessionID string) float64 {
	sess, _ := p.snap.SessionByID(sessionID)
	if sess.TimeSlotID == nil {
		return 0
	}
	neighbors := 0
	for _, other := range p.snap.Sessions {
		if other.ID == sessionID || other.TimeSlotID == nil {
			continue
		}
		if *other.TimeSlotID == *sess.TimeSlotID {
			neighbors++
		}
	}
	return math.Min(float64(neighbors)*clusteringWeightPerNeighbor, 1.0)
}

// resourceContention counts competitors for the same room and slot.
func (p *ConflictPredictor) resourceContention(sessionID string) float64 {
	sess, _ := p.snap.SessionByID(sessionID)
	if sess.TimeSlotID == nil || sess.RoomID == nil {
		return 0
	}
	competitors := 0
	for _, other := range p.snap.Sessions {
		if other.ID == sessionID || other.TimeSlotID == nil || other.RoomID == nil {
			continue
		}
		if *other.TimeSlotID == *sess.TimeSlotID && *other.RoomID == *sess.RoomID {
			competitors++
		}
	}
	return math.Min(float64(competitors), 1.0)
}

func (p *ConflictPredictor) recommendations(factors map[string]float64) []string {
	var recs []string
	if factors[FactorTeacherOverload] > overloadAdviceThreshold {
		recs = append(recs, "redistribute sessions to a less loaded teacher")
	}
	if factors[FactorRoomCapacityMismatch] > capacityAdviceThreshold {
		recs = append(recs, "move the session to a larger room")
	}
	if factors[FactorTimePreferenceViolation] > timePrefAdviceThreshold {
		recs = append(recs, "reschedule inside the preferred window for this course type")
	}
	if factors[FactorCurriculumClustering] > clusteringAdviceThreshold {
		recs = append(recs, "spread sibling sessions across more time slots")
	}
	if factors[FactorResourceContention] > contentionAdviceThreshold {
		recs = append(recs, "resolve the room double-booking before publishing")
	}
	return recs
}
