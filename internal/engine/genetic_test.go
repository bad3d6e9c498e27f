package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneticAlgorithmOptimize(t *testing.T) {
	snap := fixtureSnapshot()
	cfg := GeneticConfig{
		PopulationSize: 20,
		Generations:    40,
		CrossoverRate:  0.8,
		MutationRate:   0.1,
		EliteSize:      2,
	}

	t.Run("assigns every session", func(t *testing.T) {
		ga := NewGeneticAlgorithm(cfg, rand.New(rand.NewSource(1)), nil)
		best, err := ga.Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		require.Len(t, best.Assignments, len(snap.Sessions))
		for id, a := range best.Assignments {
			assert.True(t, a.Assigned(), "session %s left unassigned", id)
		}
	})

	t.Run("converges to a conflict-free timetable", func(t *testing.T) {
		// Two sessions, three rooms, five slots: plenty of room to avoid
		// any double booking.
		ga := NewGeneticAlgorithm(cfg, rand.New(rand.NewSource(7)), nil)
		best, err := ga.Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		assert.Zero(t, best.Objectives[ObjectiveMinimizeConflicts])
		assert.True(t, best.Feasible)
	})

	t.Run("best fitness never regresses across generations", func(t *testing.T) {
		ga := NewGeneticAlgorithm(cfg, rand.New(rand.NewSource(3)), nil)
		_, err := ga.Optimize(context.Background(), snap, nil)
		require.NoError(t, err)

		history := ga.FitnessHistory()
		require.Len(t, history, cfg.Generations)
		for i := 1; i < len(history); i++ {
			assert.GreaterOrEqual(t, history[i], history[i-1])
		}
	})

	t.Run("same seed reproduces the same result", func(t *testing.T) {
		first, err := NewGeneticAlgorithm(cfg, rand.New(rand.NewSource(42)), nil).
			Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		second, err := NewGeneticAlgorithm(cfg, rand.New(rand.NewSource(42)), nil).
			Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Fitness, second.Fitness)
		assert.Equal(t, first.Assignments, second.Assignments)
	})

	t.Run("reports progress each generation", func(t *testing.T) {
		ga := NewGeneticAlgorithm(cfg, rand.New(rand.NewSource(5)), nil)
		var reports []Progress
		_, err := ga.Optimize(context.Background(), snap, func(p Progress) {
			reports = append(reports, p)
		})
		require.NoError(t, err)
		require.Len(t, reports, cfg.Generations)
		assert.Equal(t, AlgorithmGenetic, reports[0].Algorithm)
		assert.Equal(t, 1, reports[0].Step)
		assert.Equal(t, cfg.Generations, reports[len(reports)-1].Step)
	})
}

func TestGeneticAlgorithmCancellation(t *testing.T) {
	snap := fixtureSnapshot()
	ga := NewGeneticAlgorithm(DefaultGeneticConfig(), rand.New(rand.NewSource(1)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, err := ga.Optimize(ctx, snap, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, best, "cancellation must still return the best solution so far")
	assert.Len(t, best.Assignments, len(snap.Sessions))
}

func TestGeneticCrossoverPreservesSessionSets(t *testing.T) {
	snap := fixtureSnapshot()
	ga := NewGeneticAlgorithm(DefaultGeneticConfig(), rand.New(rand.NewSource(9)), nil)

	parent1 := randomSolution(ga.rng, snap)
	parent2 := randomSolution(ga.rng, snap)
	child1, child2 := ga.crossover(parent1, parent2)

	assert.Len(t, child1.Assignments, len(parent1.Assignments))
	assert.Len(t, child2.Assignments, len(parent2.Assignments))
	for id, a := range child1.Assignments {
		fromP1 := parent1.Assignments[id] == a
		fromP2 := parent2.Assignments[id] == a
		assert.True(t, fromP1 || fromP2, "assignment for %s must come from a parent", id)
	}
}

func TestGeneticRandomSolutionRespectsCapacity(t *testing.T) {
	snap := fixtureSnapshot()
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 50; i++ {
		sol := randomSolution(rng, snap)
		for id, a := range sol.Assignments {
			sess, ok := snap.SessionByID(id)
			require.True(t, ok)
			room, ok := snap.RoomByID(a.RoomID)
			require.True(t, ok)
			assert.GreaterOrEqual(t, room.Capacity, sess.ExpectedStudents)
		}
	}
}

func TestGeneticTournamentSamplesWithoutReplacement(t *testing.T) {
	// With exactly three individuals a full-size tournament must consider all
	// of them, so the fittest always wins whatever the seed draws.
	population := []*Solution{
		{Fitness: 1.0},
		{Fitness: 5.0},
		{Fitness: 2.0},
	}

	for seed := int64(0); seed < 25; seed++ {
		ga := NewGeneticAlgorithm(DefaultGeneticConfig(), rand.New(rand.NewSource(seed)), nil)
		winner := ga.tournament(population)
		assert.Equal(t, 5.0, winner.Fitness, "seed %d", seed)
	}
}

func TestGeneticMutateSkipsUnassignedSessions(t *testing.T) {
	snap := fixtureSnapshot()
	ga := NewGeneticAlgorithm(DefaultGeneticConfig(), rand.New(rand.NewSource(13)), nil)

	sol := NewSolution(snap.ScheduleID)
	sol.Assignments["sess-cm"] = Assignment{TimeSlotID: "slot-mon-am", RoomID: "room-a"}
	sol.Assignments["sess-td"] = Assignment{}

	for i := 0; i < 50; i++ {
		ga.mutate(sol, snap)
		assert.Equal(t, Assignment{}, sol.Assignments["sess-td"],
			"mutation must not touch an unassigned session")
		assert.True(t, sol.Assignments["sess-cm"].Assigned())
	}
}
