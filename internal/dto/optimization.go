package dto

import (
	"github.com/oapet-edu/timetable-api/internal/engine"
	"github.com/oapet-edu/timetable-api/internal/models"
)

// GeneticParams overrides genetic algorithm defaults for one run.
type GeneticParams struct {
	PopulationSize *int     `json:"population_size" validate:"omitempty,min=2,max=1000"`
	Generations    *int     `json:"generations" validate:"omitempty,min=1,max=5000"`
	CrossoverRate  *float64 `json:"crossover_rate" validate:"omitempty,gte=0,lte=1"`
	MutationRate   *float64 `json:"mutation_rate" validate:"omitempty,gte=0,lte=1"`
	EliteSize      *int     `json:"elite_size" validate:"omitempty,min=0,max=100"`
}

// AnnealingParams overrides simulated annealing defaults for one run.
type AnnealingParams struct {
	InitialTemperature *float64 `json:"initial_temperature" validate:"omitempty,gt=0"`
	CoolingRate        *float64 `json:"cooling_rate" validate:"omitempty,gt=0,lt=1"`
	MinTemperature     *float64 `json:"min_temperature" validate:"omitempty,gt=0"`
	MaxIterations      *int     `json:"max_iterations" validate:"omitempty,min=1,max=1000000"`
}

// OptimizeScheduleRequest asks for an optimization run over a schedule.
type OptimizeScheduleRequest struct {
	ScheduleID string           `json:"schedule_id" validate:"required,uuid"`
	Algorithm  string           `json:"algorithm" validate:"required,oneof=genetic simulated_annealing"`
	Async      bool             `json:"async"`
	Apply      bool             `json:"apply"`
	Seed       *int64           `json:"seed"`
	Genetic    *GeneticParams   `json:"genetic"`
	Annealing  *AnnealingParams `json:"annealing"`
}

// OptimizationResult is the synchronous response of a completed run.
type OptimizationResult struct {
	Run      *models.OptimizationRun `json:"run"`
	Solution *engine.Solution        `json:"solution,omitempty"`
	Applied  bool                    `json:"applied"`
}

// RunStatusResponse reports the lifecycle state of a run plus, while it is
// executing, its latest progress tick.
type RunStatusResponse struct {
	Run      *models.OptimizationRun `json:"run"`
	Progress *engine.Progress        `json:"progress,omitempty"`
}
