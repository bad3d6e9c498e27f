package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oapet-edu/timetable-api/internal/dto"
	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
)

type fakeOptimizerSrv struct {
	result    *dto.OptimizationResult
	err       error
	lastReq   dto.OptimizeScheduleRequest
	status    *dto.RunStatusResponse
	cancelled string
}

func (f *fakeOptimizerSrv) Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.OptimizationResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeOptimizerSrv) Status(ctx context.Context, runID string) (*dto.RunStatusResponse, error) {
	if f.status == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization run not found")
	}
	return f.status, nil
}

func (f *fakeOptimizerSrv) List(ctx context.Context, filter models.RunFilter) ([]models.OptimizationRun, error) {
	return nil, nil
}

func (f *fakeOptimizerSrv) Cancel(ctx context.Context, runID string) (*models.OptimizationRun, error) {
	f.cancelled = runID
	return &models.OptimizationRun{ID: runID, Status: models.RunStatusRunning}, nil
}

func postJSON(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestOptimizationHandlerSyncResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeOptimizerSrv{
		result: &dto.OptimizationResult{
			Run: &models.OptimizationRun{ID: "run-1", Status: models.RunStatusCompleted},
		},
	}
	handler := NewOptimizationHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}
	c.Request = postJSON("/schedules/sched-1/optimize", `{"algorithm":"genetic"}`)

	handler.Optimize(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sched-1", srv.lastReq.ScheduleID)
	assert.Equal(t, "genetic", srv.lastReq.Algorithm)
}

func TestOptimizationHandlerAsyncAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeOptimizerSrv{
		result: &dto.OptimizationResult{
			Run: &models.OptimizationRun{ID: "run-1", Status: models.RunStatusPending},
		},
	}
	handler := NewOptimizationHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}
	c.Request = postJSON("/schedules/sched-1/optimize", `{"algorithm":"genetic","async":true}`)

	handler.Optimize(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, srv.lastReq.Async)
}

func TestOptimizationHandlerInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewOptimizationHandler(&fakeOptimizerSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}
	c.Request = postJSON("/schedules/sched-1/optimize", `{`)

	handler.Optimize(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizationHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeOptimizerSrv{
		status: &dto.RunStatusResponse{
			Run: &models.OptimizationRun{ID: "run-1", Status: models.RunStatusRunning},
		},
	}
	handler := NewOptimizationHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "runId", Value: "run-1"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/optimizations/run-1", nil)

	handler.Status(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			Run models.OptimizationRun `json:"run"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "run-1", envelope.Data.Run.ID)
}

func TestOptimizationHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewOptimizationHandler(&fakeOptimizerSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "runId", Value: "missing"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/optimizations/missing", nil)

	handler.Status(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOptimizationHandlerCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeOptimizerSrv{}
	handler := NewOptimizationHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "runId", Value: "run-1"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/optimizations/run-1/cancel", nil)

	handler.Cancel(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "run-1", srv.cancelled)
}
