package engine

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// AnnealingConfig tunes simulated annealing.
type AnnealingConfig struct {
	InitialTemperature float64 `json:"initial_temperature"`
	CoolingRate        float64 `json:"cooling_rate"`
	MinTemperature     float64 `json:"min_temperature"`
	MaxIterations      int     `json:"max_iterations"`
}

// DefaultAnnealingConfig returns the standard tuning.
func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{
		InitialTemperature: 1000,
		CoolingRate:        0.95,
		MinTemperature:     0.01,
		MaxIterations:      10000,
	}
}

const annealingProgressEvery = 100

// SimulatedAnnealing refines a timetable by local moves with a cooling
// acceptance schedule, starting from the same random initialization the
// genetic algorithm uses for its population.
type SimulatedAnnealing struct {
	cfg    AnnealingConfig
	rng    *rand.Rand
	logger *zap.Logger
}

// NewSimulatedAnnealing builds the optimizer. A nil logger is replaced with a
// no-op one.
func NewSimulatedAnnealing(cfg AnnealingConfig, rng *rand.Rand, logger *zap.Logger) *SimulatedAnnealing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedAnnealing{cfg: cfg, rng: rng, logger: logger}
}

// Kind implements Algorithm.
func (a *SimulatedAnnealing) Kind() AlgorithmKind { return AlgorithmAnnealing }

// Optimize walks the neighborhood of the current timetable. Strictly better
// neighbors are always taken; worse ones with probability exp(delta/T), which
// drops to zero as the temperature cools. The returned solution is never worse
// than the starting point. On context cancellation the best solution so far is
// returned with ctx.Err().
func (a *SimulatedAnnealing) Optimize(ctx context.Context, snap *Snapshot, progress ProgressFunc) (*Solution, error) {
	calc := NewObjectiveCalculator(snap)

	current := a.initialSolution(snap)
	calc.CalculateFitness(current)
	best := current.Copy()

	temperature := a.cfg.InitialTemperature
	for iter := 0; iter < a.cfg.MaxIterations && temperature > a.cfg.MinTemperature; iter++ {
		if err := ctx.Err(); err != nil {
			a.logger.Info("annealing cancelled",
				zap.Int("iteration", iter),
				zap.Float64("best_fitness", best.Fitness))
			return best, err
		}

		neighbor := a.neighbor(current, snap)
		calc.CalculateFitness(neighbor)

		if a.accept(current.Fitness, neighbor.Fitness, temperature) {
			current = neighbor
			if current.Fitness > best.Fitness {
				best = current.Copy()
			}
		}

		temperature *= a.cfg.CoolingRate

		if progress != nil && (iter+1)%annealingProgressEvery == 0 {
			progress(Progress{
				Algorithm:   AlgorithmAnnealing,
				Step:        iter + 1,
				TotalSteps:  a.cfg.MaxIterations,
				BestFitness: best.Fitness,
				Temperature: temperature,
			})
		}
	}

	a.logger.Info("annealing finished",
		zap.String("schedule_id", snap.ScheduleID),
		zap.Float64("best_fitness", best.Fitness),
		zap.Float64("final_temperature", temperature))
	return best, nil
}

// initialSolution seeds the walk with one random candidate, drawn exactly the
// way the genetic algorithm draws its initial population.
func (a *SimulatedAnnealing) initialSolution(snap *Snapshot) *Solution {
	return randomSolution(a.rng, snap)
}

// neighbor perturbs one random assigned session: a new time, a new room, or
// both.
func (a *SimulatedAnnealing) neighbor(sol *Solution, snap *Snapshot) *Solution {
	next := sol.Copy()
	ids := next.assignedSessionIDs()
	if len(ids) == 0 {
		return next
	}

	id := ids[a.rng.Intn(len(ids))]
	sess, ok := snap.SessionByID(id)
	if !ok {
		return next
	}
	assignment := next.Assignments[id]

	moveTime, moveRoom := false, false
	switch a.rng.Intn(3) {
	case 0:
		moveTime = true
	case 1:
		moveRoom = true
	default:
		moveTime, moveRoom = true, true
	}

	if moveTime && len(snap.TimeSlots) > 0 {
		assignment.TimeSlotID = snap.TimeSlots[a.rng.Intn(len(snap.TimeSlots))].ID
	}
	if moveRoom {
		if rooms := snap.CapacityRooms(sess.ExpectedStudents); len(rooms) > 0 {
			assignment.RoomID = rooms[a.rng.Intn(len(rooms))].ID
		}
	}

	next.Assignments[id] = assignment
	return next
}

// accept implements the Metropolis criterion. A non-positive temperature
// never accepts a worse neighbor.
func (a *SimulatedAnnealing) accept(currentFitness, neighborFitness, temperature float64) bool {
	if neighborFitness > currentFitness {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return a.rng.Float64() < math.Exp((neighborFitness-currentFitness)/temperature)
}
