package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oapet-edu/timetable-api/internal/dto"
	"github.com/oapet-edu/timetable-api/internal/models"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
	"github.com/oapet-edu/timetable-api/pkg/response"
)

type scheduleOptimizer interface {
	Optimize(ctx context.Context, req dto.OptimizeScheduleRequest) (*dto.OptimizationResult, error)
	Status(ctx context.Context, runID string) (*dto.RunStatusResponse, error)
	List(ctx context.Context, filter models.RunFilter) ([]models.OptimizationRun, error)
	Cancel(ctx context.Context, runID string) (*models.OptimizationRun, error)
}

// OptimizationHandler exposes the optimization run endpoints.
type OptimizationHandler struct {
	service scheduleOptimizer
}

// NewOptimizationHandler constructs an optimization handler.
func NewOptimizationHandler(svc scheduleOptimizer) *OptimizationHandler {
	return &OptimizationHandler{service: svc}
}

// Optimize starts an optimization run for a schedule. Async runs are
// acknowledged with 202 and their pending run record.
func (h *OptimizationHandler) Optimize(c *gin.Context) {
	var req dto.OptimizeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimize payload"))
		return
	}
	req.ScheduleID = c.Param("id")

	result, err := h.service.Optimize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.Async {
		response.Accepted(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Status reports a run's lifecycle record plus live progress.
func (h *OptimizationHandler) Status(c *gin.Context) {
	resp, err := h.service.Status(c.Request.Context(), c.Param("runId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// List returns run records, optionally filtered by schedule and status.
func (h *OptimizationHandler) List(c *gin.Context) {
	var filter models.RunFilter
	filter.ScheduleID = c.Query("schedule_id")
	filter.Status = models.RunStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	runs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs)
}

// Cancel asks a run to stop at its next checkpoint.
func (h *OptimizationHandler) Cancel(c *gin.Context) {
	run, err := h.service.Cancel(c.Request.Context(), c.Param("runId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}
