package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedAnnealingOptimize(t *testing.T) {
	snap := fixtureSnapshot()
	cfg := AnnealingConfig{
		InitialTemperature: 100,
		CoolingRate:        0.95,
		MinTemperature:     0.01,
		MaxIterations:      500,
	}

	t.Run("never returns worse than the starting timetable", func(t *testing.T) {
		// A fresh source with the same seed reproduces the starting
		// candidate the optimizer draws first.
		initial := randomSolution(rand.New(rand.NewSource(1)), snap)
		NewObjectiveCalculator(snap).CalculateFitness(initial)

		sa := NewSimulatedAnnealing(cfg, rand.New(rand.NewSource(1)), nil)
		best, err := sa.Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, best.Fitness, initial.Fitness)
	})

	t.Run("starts from the same random draw as the genetic algorithm", func(t *testing.T) {
		sa := NewSimulatedAnnealing(cfg, rand.New(rand.NewSource(2)), nil)
		initial := sa.initialSolution(snap)

		want := randomSolution(rand.New(rand.NewSource(2)), snap)
		assert.Equal(t, want.Assignments, initial.Assignments)
		for id, a := range initial.Assignments {
			assert.True(t, a.Assigned(), "session %s left unassigned", id)
		}
	})

	t.Run("same seed reproduces the same result", func(t *testing.T) {
		first, err := NewSimulatedAnnealing(cfg, rand.New(rand.NewSource(42)), nil).
			Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		second, err := NewSimulatedAnnealing(cfg, rand.New(rand.NewSource(42)), nil).
			Optimize(context.Background(), snap, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Fitness, second.Fitness)
		assert.Equal(t, first.Assignments, second.Assignments)
	})

	t.Run("reports progress with temperature", func(t *testing.T) {
		sa := NewSimulatedAnnealing(cfg, rand.New(rand.NewSource(5)), nil)
		var reports []Progress
		_, err := sa.Optimize(context.Background(), snap, func(p Progress) {
			reports = append(reports, p)
		})
		require.NoError(t, err)
		require.NotEmpty(t, reports)
		assert.Equal(t, AlgorithmAnnealing, reports[0].Algorithm)
		assert.Equal(t, 100, reports[0].Step)
		assert.Greater(t, reports[0].Temperature, 0.0)
	})
}

func TestSimulatedAnnealingCancellation(t *testing.T) {
	snap := fixtureSnapshot()
	sa := NewSimulatedAnnealing(DefaultAnnealingConfig(), rand.New(rand.NewSource(1)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, err := sa.Optimize(ctx, snap, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, best)
	assert.Len(t, best.Assignments, len(snap.Sessions))
}

func TestSimulatedAnnealingAccept(t *testing.T) {
	sa := NewSimulatedAnnealing(DefaultAnnealingConfig(), rand.New(rand.NewSource(1)), nil)

	t.Run("better is always accepted", func(t *testing.T) {
		assert.True(t, sa.accept(-5, -1, 0.001))
		assert.True(t, sa.accept(-5, -1, 0))
	})

	t.Run("worse is never accepted at zero temperature", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			assert.False(t, sa.accept(-1, -5, 0))
		}
	})

	t.Run("worse is usually accepted when temperature dwarfs the delta", func(t *testing.T) {
		accepted := 0
		for i := 0; i < 100; i++ {
			if sa.accept(-1, -1.01, 1000) {
				accepted++
			}
		}
		assert.Greater(t, accepted, 90)
	})
}

func TestSimulatedAnnealingNeighborChangesOneSession(t *testing.T) {
	snap := fixtureSnapshot()
	sa := NewSimulatedAnnealing(DefaultAnnealingConfig(), rand.New(rand.NewSource(3)), nil)

	base := sa.initialSolution(snap)
	for i := 0; i < 50; i++ {
		neighbor := sa.neighbor(base, snap)
		changed := 0
		for id, a := range neighbor.Assignments {
			if base.Assignments[id] != a {
				changed++
			}
		}
		assert.LessOrEqual(t, changed, 1)
	}
}
