package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/dto"
	"github.com/oapet-edu/timetable-api/internal/engine"
	"github.com/oapet-edu/timetable-api/internal/models"
	"github.com/oapet-edu/timetable-api/pkg/config"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
	"github.com/oapet-edu/timetable-api/pkg/jobs"
)

type runRepository interface {
	Create(ctx context.Context, run *models.OptimizationRun) error
	FindByID(ctx context.Context, id string) (*models.OptimizationRun, error)
	List(ctx context.Context, filter models.RunFilter) ([]models.OptimizationRun, error)
	CountActive(ctx context.Context, scheduleID string) (int, error)
	MarkRunning(ctx context.Context, id string) error
	Finish(ctx context.Context, run *models.OptimizationRun) error
}

type sessionAssignmentWriter interface {
	UpdateAssignmentWithTx(ctx context.Context, tx *sqlx.Tx, sessionID, timeSlotID, roomID string) error
}

type progressStore interface {
	Save(ctx context.Context, runID string, progress engine.Progress)
	Load(ctx context.Context, runID string) (*engine.Progress, error)
	Delete(ctx context.Context, runID string)
}

type runEnqueuer interface {
	Enqueue(job jobs.Job) error
	Cancel(jobID string) bool
}

type optimizationObserver interface {
	ObserveOptimization(algorithm string, status models.RunStatus, duration time.Duration)
}

// OptimizationService executes timetable optimization runs, synchronously or
// through the background queue, and tracks their lifecycle records.
type OptimizationService struct {
	loader    *SnapshotLoader
	runs      runRepository
	sessions  sessionAssignmentWriter
	schedules scheduleMetricsWriter
	progress  progressStore
	queue     runEnqueuer
	metrics   optimizationObserver
	defaults  config.OptimizerConfig
	validator *validator.Validate
	logger    *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewOptimizationService wires the optimization dependencies. The queue may
// be nil when async execution is disabled.
func NewOptimizationService(
	loader *SnapshotLoader,
	runs runRepository,
	sessions sessionAssignmentWriter,
	schedules scheduleMetricsWriter,
	progress progressStore,
	metrics optimizationObserver,
	defaults config.OptimizerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *OptimizationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizationService{
		loader:    loader,
		runs:      runs,
		sessions:  sessions,
		schedules: schedules,
		progress:  progress,
		metrics:   metrics,
		defaults:  defaults,
		validator: validate,
		logger:    logger,
		running:   make(map[string]context.CancelFunc),
	}
}

// AttachQueue hands the service its background queue. Called after queue
// construction since the queue's handler is the service itself.
func (s *OptimizationService) AttachQueue(queue runEnqueuer) {
	s.queue = queue
}

// Optimize starts an optimization run. Only one run may be active per
// schedule at a time. Async requests are accepted immediately with the run in
// PENDING state; synchronous ones block until the algorithm finishes.
func (s *OptimizationService) Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.OptimizationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimization request")
	}
	if _, ok := knownAlgorithm(req.Algorithm); !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownAlgorithm, "unsupported algorithm: "+req.Algorithm)
	}

	active, err := s.runs.CountActive(ctx, req.ScheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check active runs")
	}
	if active > 0 {
		return nil, appErrors.ErrRunActive
	}

	run := &models.OptimizationRun{
		ScheduleID: req.ScheduleID,
		Algorithm:  req.Algorithm,
		Status:     models.RunStatusPending,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create optimization run")
	}

	if req.Async {
		if s.queue == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "background optimization is not available")
		}
		if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: "optimize_schedule", Payload: req}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue optimization run")
		}
		s.logger.Info("optimization run enqueued",
			zap.String("run_id", run.ID),
			zap.String("schedule_id", req.ScheduleID),
			zap.String("algorithm", req.Algorithm))
		return &dto.OptimizationResult{Run: run}, nil
	}

	return s.execute(ctx, run, req)
}

// HandleJob is the queue handler for async runs. Infrastructure failures are
// marked retryable; algorithm-level outcomes are recorded on the run and
// never retried.
func (s *OptimizationService) HandleJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.OptimizeScheduleRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	run, err := s.runs.FindByID(ctx, job.ID)
	if err != nil {
		return jobs.Retryable(fmt.Errorf("load run %s: %w", job.ID, err))
	}
	if run.Status.IsTerminal() {
		return nil
	}
	run.Attempt = job.Attempt

	if _, err := s.execute(ctx, run, req); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrInternal.Code {
			return jobs.Retryable(err)
		}
		return err
	}
	return nil
}

// execute runs the algorithm and records the outcome. A panic inside the
// engine fails the run instead of crashing the worker.
func (s *OptimizationService) execute(ctx context.Context, run *models.OptimizationRun, req dto.OptimizeScheduleRequest) (result *dto.OptimizationResult, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("optimizer panic: %v", r)
			s.logger.Error("optimization run panicked",
				zap.String("run_id", run.ID),
				zap.Any("panic", r))
			s.finishRun(run, models.RunStatusFailed, nil, &msg)
			result = &dto.OptimizationResult{Run: run}
			err = nil
		}
		if s.metrics != nil {
			s.metrics.ObserveOptimization(run.Algorithm, run.Status, time.Since(start))
		}
	}()

	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "mark run running")
	}
	run.Status = models.RunStatusRunning

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.running[run.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, run.ID)
		s.mu.Unlock()
	}()

	snap, err := s.loader.Load(runCtx, req.ScheduleID)
	if err != nil {
		msg := err.Error()
		s.finishRun(run, models.RunStatusFailed, nil, &msg)
		return nil, err
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	algorithm, err := engine.NewAlgorithm(engine.AlgorithmKind(req.Algorithm), s.algorithmParams(req), rng, s.logger)
	if err != nil {
		msg := err.Error()
		s.finishRun(run, models.RunStatusFailed, nil, &msg)
		return nil, err
	}

	sink := func(p engine.Progress) {
		if s.progress != nil {
			s.progress.Save(runCtx, run.ID, p)
		}
	}

	solution, optErr := algorithm.Optimize(runCtx, snap, sink)

	switch {
	case optErr == nil:
		s.finishRun(run, models.RunStatusCompleted, solution, nil)
	case errors.Is(optErr, context.Canceled):
		// cancelled runs keep the best solution found so far
		s.finishRun(run, models.RunStatusCancelled, solution, nil)
	default:
		msg := optErr.Error()
		s.finishRun(run, models.RunStatusFailed, solution, &msg)
	}

	applied := false
	if req.Apply && run.Status == models.RunStatusCompleted && solution != nil {
		if applyErr := s.applySolution(ctx, snap, solution); applyErr != nil {
			s.logger.Error("failed to apply solution",
				zap.String("run_id", run.ID),
				zap.Error(applyErr))
			return nil, applyErr
		}
		applied = true
	}

	s.logger.Info("optimization run finished",
		zap.String("run_id", run.ID),
		zap.String("algorithm", run.Algorithm),
		zap.String("status", string(run.Status)),
		zap.Bool("applied", applied),
		zap.Duration("elapsed", time.Since(start)))

	return &dto.OptimizationResult{Run: run, Solution: solution, Applied: applied}, nil
}

// finishRun stamps the terminal state and persists it, then drops the live
// progress entry. Persistence failures are logged, not propagated: the
// algorithm result has already been computed.
func (s *OptimizationService) finishRun(run *models.OptimizationRun, status models.RunStatus, solution *engine.Solution, errMsg *string) {
	run.Status = status
	run.Error = errMsg
	if solution != nil {
		fitness := solution.Fitness
		run.Fitness = &fitness
		if payload, err := json.Marshal(solution.Objectives); err == nil {
			run.Objectives = types.JSONText(payload)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.Finish(ctx, run); err != nil {
		s.logger.Error("failed to persist run outcome",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
	if s.progress != nil {
		s.progress.Delete(ctx, run.ID)
	}
}

// applySolution writes the winning assignments back onto the session
// templates in one transaction. Assignments referencing sessions that have
// disappeared since the snapshot are skipped.
func (s *OptimizationService) applySolution(ctx context.Context, snap *engine.Snapshot, solution *engine.Solution) (err error) {
	tx, err := s.schedules.BeginTx(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin apply tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	assigned := 0
	for sessionID, a := range solution.Assignments {
		if !a.Assigned() {
			continue
		}
		if _, ok := snap.SessionByID(sessionID); !ok {
			continue
		}
		if err = s.sessions.UpdateAssignmentWithTx(ctx, tx, sessionID, a.TimeSlotID, a.RoomID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "apply assignment")
		}
		assigned++
	}

	conflicts := int(solution.Objectives[engine.ObjectiveMinimizeConflicts])
	if err = s.schedules.UpdateMetricsWithTx(ctx, tx, snap.ScheduleID, assigned, conflicts); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update schedule metrics")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit apply tx")
	}
	return nil
}

// Status reports a run's lifecycle record, including the latest progress tick
// while it is executing.
func (s *OptimizationService) Status(ctx context.Context, runID string) (*dto.RunStatusResponse, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load optimization run")
	}

	resp := &dto.RunStatusResponse{Run: run}
	if run.Status == models.RunStatusRunning && s.progress != nil {
		if progress, err := s.progress.Load(ctx, runID); err == nil {
			resp.Progress = progress
		}
	}
	return resp, nil
}

// List returns run records matching the filter.
func (s *OptimizationService) List(ctx context.Context, filter models.RunFilter) ([]models.OptimizationRun, error) {
	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list optimization runs")
	}
	return runs, nil
}

// Cancel asks a run to stop at its next checkpoint. Pending runs that never
// started are finalized immediately.
func (s *OptimizationService) Cancel(ctx context.Context, runID string) (*models.OptimizationRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load optimization run")
	}
	if run.Status.IsTerminal() {
		return nil, appErrors.ErrRunNotCancellable
	}

	s.mu.Lock()
	cancel, executing := s.running[runID]
	s.mu.Unlock()

	if executing {
		cancel()
		s.logger.Info("optimization run cancellation requested", zap.String("run_id", runID))
		return run, nil
	}

	// never started: drop the queued job if any, then finalize directly
	if s.queue != nil {
		s.queue.Cancel(runID)
	}
	s.finishRun(run, models.RunStatusCancelled, nil, nil)
	return run, nil
}

func (s *OptimizationService) algorithmParams(req dto.OptimizeScheduleRequest) engine.AlgorithmParams {
	genetic := engine.GeneticConfig{
		PopulationSize: s.defaults.Genetic.PopulationSize,
		Generations:    s.defaults.Genetic.Generations,
		CrossoverRate:  s.defaults.Genetic.CrossoverRate,
		MutationRate:   s.defaults.Genetic.MutationRate,
		EliteSize:      s.defaults.Genetic.EliteSize,
	}
	if genetic.PopulationSize <= 0 {
		genetic = engine.DefaultGeneticConfig()
	}
	if req.Genetic != nil {
		if req.Genetic.PopulationSize != nil {
			genetic.PopulationSize = *req.Genetic.PopulationSize
		}
		if req.Genetic.Generations != nil {
			genetic.Generations = *req.Genetic.Generations
		}
		if req.Genetic.CrossoverRate != nil {
			genetic.CrossoverRate = *req.Genetic.CrossoverRate
		}
		if req.Genetic.MutationRate != nil {
			genetic.MutationRate = *req.Genetic.MutationRate
		}
		if req.Genetic.EliteSize != nil {
			genetic.EliteSize = *req.Genetic.EliteSize
		}
	}

	annealing := engine.AnnealingConfig{
		InitialTemperature: s.defaults.Annealing.InitialTemperature,
		CoolingRate:        s.defaults.Annealing.CoolingRate,
		MinTemperature:     s.defaults.Annealing.MinTemperature,
		MaxIterations:      s.defaults.Annealing.MaxIterations,
	}
	if annealing.InitialTemperature <= 0 {
		annealing = engine.DefaultAnnealingConfig()
	}
	if req.Annealing != nil {
		if req.Annealing.InitialTemperature != nil {
			annealing.InitialTemperature = *req.Annealing.InitialTemperature
		}
		if req.Annealing.CoolingRate != nil {
			annealing.CoolingRate = *req.Annealing.CoolingRate
		}
		if req.Annealing.MinTemperature != nil {
			annealing.MinTemperature = *req.Annealing.MinTemperature
		}
		if req.Annealing.MaxIterations != nil {
			annealing.MaxIterations = *req.Annealing.MaxIterations
		}
	}

	return engine.AlgorithmParams{Genetic: &genetic, Annealing: &annealing}
}

func knownAlgorithm(name string) (engine.AlgorithmKind, bool) {
	for _, kind := range engine.KnownAlgorithms() {
		if string(kind) == name {
			return kind, true
		}
	}
	return "", false
}
