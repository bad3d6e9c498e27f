package engine

import (
	"context"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// GeneticConfig tunes the genetic algorithm.
type GeneticConfig struct {
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	CrossoverRate  float64 `json:"crossover_rate"`
	MutationRate   float64 `json:"mutation_rate"`
	EliteSize      int     `json:"elite_size"`
}

// DefaultGeneticConfig returns the standard tuning.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 100,
		Generations:    500,
		CrossoverRate:  0.8,
		MutationRate:   0.1,
		EliteSize:      10,
	}
}

const tournamentSize = 3

// GeneticAlgorithm evolves a population of candidate timetables. Randomness
// comes exclusively from the injected source, so a seeded source makes runs
// reproducible.
type GeneticAlgorithm struct {
	cfg     GeneticConfig
	rng     *rand.Rand
	logger  *zap.Logger
	history []float64
}

// NewGeneticAlgorithm builds the optimizer. A nil logger is replaced with a
// no-op one.
func NewGeneticAlgorithm(cfg GeneticConfig, rng *rand.Rand, logger *zap.Logger) *GeneticAlgorithm {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneticAlgorithm{cfg: cfg, rng: rng, logger: logger}
}

// Kind implements Algorithm.
func (g *GeneticAlgorithm) Kind() AlgorithmKind { return AlgorithmGenetic }

// FitnessHistory returns the best fitness recorded at each generation of the
// last run.
func (g *GeneticAlgorithm) FitnessHistory() []float64 { return g.history }

// Optimize runs the evolutionary loop: random initialization, tournament
// selection, single-point crossover, point mutation, and elitism. On context
// cancellation the best solution found so far is returned with ctx.Err().
func (g *GeneticAlgorithm) Optimize(ctx context.Context, snap *Snapshot, progress ProgressFunc) (*Solution, error) {
	calc := NewObjectiveCalculator(snap)
	g.history = g.history[:0]

	population := make([]*Solution, g.cfg.PopulationSize)
	for i := range population {
		population[i] = randomSolution(g.rng, snap)
		calc.CalculateFitness(population[i])
	}

	best := fittest(population).Copy()
	g.logger.Debug("initial population evaluated",
		zap.String("schedule_id", snap.ScheduleID),
		zap.Float64("best_fitness", best.Fitness))

	for gen := 0; gen < g.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			g.logger.Info("genetic optimization cancelled",
				zap.Int("generation", gen),
				zap.Float64("best_fitness", best.Fitness))
			return best, err
		}

		next := make([]*Solution, 0, g.cfg.PopulationSize)
		for _, elite := range topN(population, g.cfg.EliteSize) {
			next = append(next, elite.Copy())
		}

		for len(next) < g.cfg.PopulationSize {
			parent1 := g.tournament(population)
			parent2 := g.tournament(population)

			var child1, child2 *Solution
			if g.rng.Float64() < g.cfg.CrossoverRate {
				child1, child2 = g.crossover(parent1, parent2)
			} else {
				child1, child2 = parent1.Copy(), parent2.Copy()
			}

			if g.rng.Float64() < g.cfg.MutationRate {
				g.mutate(child1, snap)
			}
			if g.rng.Float64() < g.cfg.MutationRate {
				g.mutate(child2, snap)
			}

			next = append(next, child1)
			if len(next) < g.cfg.PopulationSize {
				next = append(next, child2)
			}
		}

		population = next
		for _, sol := range population {
			calc.CalculateFitness(sol)
		}

		if candidate := fittest(population); candidate.Fitness > best.Fitness {
			best = candidate.Copy()
		}
		g.history = append(g.history, best.Fitness)

		if progress != nil {
			progress(Progress{
				Algorithm:   AlgorithmGenetic,
				Step:        gen + 1,
				TotalSteps:  g.cfg.Generations,
				BestFitness: best.Fitness,
			})
		}
	}

	g.logger.Info("genetic optimization finished",
		zap.String("schedule_id", snap.ScheduleID),
		zap.Int("generations", g.cfg.Generations),
		zap.Float64("best_fitness", best.Fitness))
	return best, nil
}

// tournament picks the fittest of three individuals sampled without
// replacement; a population smaller than the tournament falls back to
// sampling with replacement.
func (g *GeneticAlgorithm) tournament(population []*Solution) *Solution {
	if len(population) < tournamentSize {
		best := population[g.rng.Intn(len(population))]
		for i := 1; i < tournamentSize; i++ {
			if challenger := population[g.rng.Intn(len(population))]; challenger.Fitness > best.Fitness {
				best = challenger
			}
		}
		return best
	}

	picks := g.rng.Perm(len(population))[:tournamentSize]
	best := population[picks[0]]
	for _, idx := range picks[1:] {
		if population[idx].Fitness > best.Fitness {
			best = population[idx]
		}
	}
	return best
}

// crossover swaps assignment tails at a single cut point over the sorted
// session-ID list. Parents with fewer than two sessions are copied unchanged.
func (g *GeneticAlgorithm) crossover(parent1, parent2 *Solution) (*Solution, *Solution) {
	ids := parent1.sessionIDs()
	if len(ids) < 2 {
		return parent1.Copy(), parent2.Copy()
	}

	cut := 1 + g.rng.Intn(len(ids)-1)
	child1 := parent1.Copy()
	child2 := parent2.Copy()
	for _, id := range ids[cut:] {
		a1, ok1 := parent1.Assignments[id]
		a2, ok2 := parent2.Assignments[id]
		if ok2 {
			child1.Assignments[id] = a2
		}
		if ok1 {
			child2.Assignments[id] = a1
		}
	}
	return child1, child2
}

// mutate reassigns one random already-assigned session to a fresh random slot
// and room.
func (g *GeneticAlgorithm) mutate(sol *Solution, snap *Snapshot) {
	ids := sol.assignedSessionIDs()
	if len(ids) == 0 {
		return
	}
	id := ids[g.rng.Intn(len(ids))]
	sess, ok := snap.SessionByID(id)
	if !ok {
		return
	}
	sol.Assignments[id] = randomAssignment(g.rng, snap, sess.ExpectedStudents)
}

// fittest returns the highest-fitness individual.
func fittest(population []*Solution) *Solution {
	best := population[0]
	for _, sol := range population[1:] {
		if sol.Fitness > best.Fitness {
			best = sol
		}
	}
	return best
}

// topN returns the n fittest individuals without reordering the population.
func topN(population []*Solution, n int) []*Solution {
	if n > len(population) {
		n = len(population)
	}
	sorted := make([]*Solution, len(population))
	copy(sorted, population)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Fitness > sorted[j].Fitness })
	return sorted[:n]
}
