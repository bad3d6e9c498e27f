package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oapet-edu/timetable-api/internal/engine"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

// ProgressRepository stores live optimization progress in Redis so status
// polls never hit the database while a run is executing. A nil client turns
// every write into a no-op; the run record remains the source of truth.
type ProgressRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ProgressRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProgressRepository{client: client, ttl: ttl, logger: logger}
}

func progressKey(runID string) string {
	return "optimization:progress:" + runID
}

// Save records the latest progress report for a run. Failures are logged and
// swallowed: losing a progress tick must never fail the run.
func (r *ProgressRepository) Save(ctx context.Context, runID string, progress engine.Progress) {
	if r.client == nil {
		return
	}
	payload, err := json.Marshal(progress)
	if err != nil {
		r.logger.Warn("marshal run progress", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, progressKey(runID), payload, r.ttl).Err(); err != nil {
		r.logger.Warn("store run progress", zap.String("run_id", runID), zap.Error(err))
	}
}

// Load returns the latest progress report for a run.
func (r *ProgressRepository) Load(ctx context.Context, runID string) (*engine.Progress, error) {
	if r.client == nil {
		return nil, appErrors.ErrNotFound
	}
	raw, err := r.client.Get(ctx, progressKey(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", progressKey(runID), err)
	}
	var progress engine.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, fmt.Errorf("unmarshal run progress: %w", err)
	}
	return &progress, nil
}

// Delete drops the progress entry once a run reaches a terminal state.
func (r *ProgressRepository) Delete(ctx context.Context, runID string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, progressKey(runID)).Err(); err != nil {
		r.logger.Warn("delete run progress", zap.String("run_id", runID), zap.Error(err))
	}
}
