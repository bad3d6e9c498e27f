package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/dto"
	"github.com/oapet-edu/timetable-api/internal/engine"
	"github.com/oapet-edu/timetable-api/internal/models"
	"github.com/oapet-edu/timetable-api/pkg/config"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

type generationConfigReader interface {
	FindGenerationConfig(ctx context.Context, scheduleID string) (*models.GenerationConfig, error)
}

type scheduleMetricsWriter interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	UpdateMetricsWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string, totalSessions, conflictCount int) error
}

type occurrenceWriter interface {
	CountOccurrences(ctx context.Context, scheduleID string) (int, error)
	BulkCreateOccurrencesWithTx(ctx context.Context, tx *sqlx.Tx, occurrences []models.SessionOccurrence) error
	DeleteOccurrencesWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type generationObserver interface {
	ObserveGeneration(success bool, duration time.Duration, scheduled int)
}

// GenerationService runs the placement engine over a schedule and persists the
// resulting occurrences.
type GenerationService struct {
	loader      *SnapshotLoader
	configs     generationConfigReader
	schedules   scheduleMetricsWriter
	occurrences occurrenceWriter
	metrics     generationObserver
	defaults    config.GeneratorConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGenerationService wires the generation dependencies.
func NewGenerationService(
	loader *SnapshotLoader,
	configs generationConfigReader,
	schedules scheduleMetricsWriter,
	occurrences occurrenceWriter,
	metrics generationObserver,
	defaults config.GeneratorConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		loader:      loader,
		configs:     configs,
		schedules:   schedules,
		occurrences: occurrences,
		metrics:     metrics,
		defaults:    defaults,
		validator:   validate,
		logger:      logger,
	}
}

// Generate builds the full set of dated occurrences for a schedule. Preview
// runs return the engine result without touching the database; otherwise the
// occurrences are written in one transaction, replacing the existing ones
// when force-regenerate is set.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}

	snap, err := s.loader.Load(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if len(snap.Sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule has no sessions to plan")
	}

	engineCfg, err := s.resolveConfig(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := engine.NewGenerator(snap, engineCfg, s.logger).Generate()
	if s.metrics != nil {
		s.metrics.ObserveGeneration(result.Success, time.Since(start), result.TotalScheduled)
	}

	resp := &dto.GenerateScheduleResponse{
		ScheduleID: req.ScheduleID,
		Preview:    req.Preview,
		Result:     result,
	}
	if req.Preview {
		return resp, nil
	}
	if !result.Success && !engineCfg.AllowConflicts {
		s.logger.Warn("generation failed, skipping persistence",
			zap.String("schedule_id", req.ScheduleID),
			zap.Int("blockages", len(result.Blockages)),
			zap.Int("conflicts", len(result.Conflicts)))
		return resp, nil
	}

	if err := s.persist(ctx, req, result); err != nil {
		return nil, err
	}
	return resp, nil
}

// resolveConfig merges the stored per-schedule generation config with the
// request overrides. A request without stored config must carry its own date
// range.
func (s *GenerationService) resolveConfig(ctx context.Context, req dto.GenerateScheduleRequest) (engine.GenerationConfig, error) {
	cfg := engine.GenerationConfig{
		ExcludedDates:          make(map[string]struct{}),
		MinCompletionRatio:     s.defaults.MinCompletionRatio,
		MaxConsecutiveFailures: s.defaults.MaxConsecutiveFailures,
	}

	stored, err := s.configs.FindGenerationConfig(ctx, req.ScheduleID)
	switch {
	case err == nil:
		cfg.StartDate = stored.StartDate
		cfg.EndDate = stored.EndDate
		cfg.AllowConflicts = stored.AllowConflicts
		if stored.MinCompletionRatio > 0 {
			cfg.MinCompletionRatio = stored.MinCompletionRatio
		}
		if stored.MaxConsecutiveFailures > 0 {
			cfg.MaxConsecutiveFailures = stored.MaxConsecutiveFailures
		}
		if len(stored.ExcludedDates) > 0 {
			var dates []string
			if err := json.Unmarshal(stored.ExcludedDates, &dates); err == nil {
				for _, d := range dates {
					cfg.ExcludedDates[d] = struct{}{}
				}
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		// fall through to request-level dates
	default:
		return cfg, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load generation config")
	}

	if req.DateFrom != "" {
		from, parseErr := time.Parse("2006-01-02", req.DateFrom)
		if parseErr != nil {
			return cfg, appErrors.Clone(appErrors.ErrValidation, "invalid date_from")
		}
		cfg.StartDate = from
	}
	if req.DateTo != "" {
		to, parseErr := time.Parse("2006-01-02", req.DateTo)
		if parseErr != nil {
			return cfg, appErrors.Clone(appErrors.ErrValidation, "invalid date_to")
		}
		cfg.EndDate = to
	}
	for _, d := range req.ExcludedDates {
		cfg.ExcludedDates[d] = struct{}{}
	}
	if req.AllowConflicts != nil {
		cfg.AllowConflicts = *req.AllowConflicts
	}

	if cfg.StartDate.IsZero() || cfg.EndDate.IsZero() || cfg.EndDate.Before(cfg.StartDate) {
		return cfg, appErrors.Clone(appErrors.ErrValidation, "generation requires a valid date range")
	}
	return cfg, nil
}

func (s *GenerationService) persist(ctx context.Context, req dto.GenerateScheduleRequest, result *engine.GenerationResult) error {
	existing, err := s.occurrences.CountOccurrences(ctx, req.ScheduleID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count occurrences")
	}
	if existing > 0 && !req.ForceRegenerate {
		return appErrors.Clone(appErrors.ErrConflict, "schedule already has occurrences; use force_regenerate to replace them")
	}

	tx, err := s.schedules.BeginTx(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin generation tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if existing > 0 {
		if err = s.occurrences.DeleteOccurrencesWithTx(ctx, tx, req.ScheduleID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "clear previous occurrences")
		}
	}
	if err = s.occurrences.BulkCreateOccurrencesWithTx(ctx, tx, result.Occurrences); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store occurrences")
	}
	if err = s.schedules.UpdateMetricsWithTx(ctx, tx, req.ScheduleID, result.TotalScheduled, len(result.Conflicts)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update schedule metrics")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit generation tx")
	}

	s.logger.Info("generation persisted",
		zap.String("schedule_id", req.ScheduleID),
		zap.Int("occurrences", len(result.Occurrences)),
		zap.Bool("force_regenerate", req.ForceRegenerate))
	return nil
}

// PredictConflicts runs the conflict predictor over a schedule's current
// assignments.
func (s *GenerationService) PredictConflicts(ctx context.Context, scheduleID string) (*dto.PredictConflictsResponse, error) {
	snap, err := s.loader.Load(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	predictions := engine.NewConflictPredictor(snap).PredictSchedule()
	highRisk := 0
	for _, p := range predictions {
		if p.HighRisk {
			highRisk++
		}
	}
	return &dto.PredictConflictsResponse{
		ScheduleID:  scheduleID,
		Predictions: predictions,
		HighRisk:    highRisk,
	}, nil
}
