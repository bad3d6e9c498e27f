package engine

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

// AlgorithmKind names a registered optimization algorithm.
type AlgorithmKind string

const (
	AlgorithmGenetic   AlgorithmKind = "genetic"
	AlgorithmAnnealing AlgorithmKind = "simulated_annealing"
)

// Progress is a point-in-time report from a running algorithm.
type Progress struct {
	Algorithm   AlgorithmKind `json:"algorithm"`
	Step        int           `json:"step"`
	TotalSteps  int           `json:"total_steps"`
	BestFitness float64       `json:"best_fitness"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ProgressFunc receives periodic progress reports. May be nil.
type ProgressFunc func(Progress)

// Algorithm is one timetable optimizer. Optimize respects ctx cancellation by
// returning the best solution found so far together with ctx.Err().
type Algorithm interface {
	Kind() AlgorithmKind
	Optimize(ctx context.Context, snap *Snapshot, progress ProgressFunc) (*Solution, error)
}

// AlgorithmParams carries per-run overrides for algorithm tuning knobs. Nil
// fields fall back to the configured defaults.
type AlgorithmParams struct {
	Genetic   *GeneticConfig
	Annealing *AnnealingConfig
}

// algorithmFactories is the fixed dispatch table from kind to constructor.
// Adding an algorithm means adding a row here, nothing else.
var algorithmFactories = map[AlgorithmKind]func(params AlgorithmParams, rng *rand.Rand, logger *zap.Logger) Algorithm{
	AlgorithmGenetic: func(params AlgorithmParams, rng *rand.Rand, logger *zap.Logger) Algorithm {
		cfg := DefaultGeneticConfig()
		if params.Genetic != nil {
			cfg = *params.Genetic
		}
		return NewGeneticAlgorithm(cfg, rng, logger)
	},
	AlgorithmAnnealing: func(params AlgorithmParams, rng *rand.Rand, logger *zap.Logger) Algorithm {
		cfg := DefaultAnnealingConfig()
		if params.Annealing != nil {
			cfg = *params.Annealing
		}
		return NewSimulatedAnnealing(cfg, rng, logger)
	},
}

// NewAlgorithm resolves a kind through the dispatch table.
func NewAlgorithm(kind AlgorithmKind, params AlgorithmParams, rng *rand.Rand, logger *zap.Logger) (Algorithm, error) {
	factory, ok := algorithmFactories[kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownAlgorithm, "unsupported algorithm: "+string(kind))
	}
	return factory(params, rng, logger), nil
}

// KnownAlgorithms lists the registered kinds, for validation and discovery.
func KnownAlgorithms() []AlgorithmKind {
	return []AlgorithmKind{AlgorithmGenetic, AlgorithmAnnealing}
}

// randomAssignment draws a uniformly random active slot and a uniformly random
// room with enough seats. Empty pools leave the session unassigned.
func randomAssignment(rng *rand.Rand, snap *Snapshot, expectedStudents int) Assignment {
	rooms := snap.CapacityRooms(expectedStudents)
	if len(snap.TimeSlots) == 0 || len(rooms) == 0 {
		return Assignment{}
	}
	slot := snap.TimeSlots[rng.Intn(len(snap.TimeSlots))]
	room := rooms[rng.Intn(len(rooms))]
	return Assignment{TimeSlotID: slot.ID, RoomID: room.ID}
}

// randomSolution builds one fully random candidate. Both optimizers seed their
// search with it.
func randomSolution(rng *rand.Rand, snap *Snapshot) *Solution {
	sol := NewSolution(snap.ScheduleID)
	for _, sess := range snap.Sessions {
		sol.Assignments[sess.ID] = randomAssignment(rng, snap, sess.ExpectedStudents)
	}
	return sol
}
