package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oapet-edu/timetable-api/internal/dto"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
	"github.com/oapet-edu/timetable-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	PredictConflicts(ctx context.Context, scheduleID string) (*dto.PredictConflictsResponse, error)
}

// GenerationHandler exposes the timetable generation endpoints.
type GenerationHandler struct {
	service scheduleGenerator
}

// NewGenerationHandler constructs a generation handler.
func NewGenerationHandler(svc scheduleGenerator) *GenerationHandler {
	return &GenerationHandler{service: svc}
}

// Generate runs the placement engine for a schedule. The schedule id comes
// from the path; body flags control preview, force-regenerate and overrides.
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}
	req.ScheduleID = c.Param("id")

	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// PredictConflicts reports per-session conflict risk for the schedule's
// current assignments.
func (h *GenerationHandler) PredictConflicts(c *gin.Context) {
	resp, err := h.service.PredictConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
