package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oapet-edu/timetable-api/internal/service"
	appErrors "github.com/oapet-edu/timetable-api/pkg/errors"
	"github.com/oapet-edu/timetable-api/pkg/response"
)

// ScheduleHandler exposes schedule, session and export endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	exports   *service.ExportService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(schedules *service.ScheduleService, exports *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, exports: exports}
}

// List lists schedules.
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules)
}

// Get fetches one schedule.
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Create opens a new schedule.
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// ListSessions lists a schedule's session templates.
func (h *ScheduleHandler) ListSessions(c *gin.Context) {
	sessions, err := h.schedules.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// CreateSession adds a session template to a schedule.
func (h *ScheduleHandler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sess, err := h.schedules.CreateSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sess)
}

// GetSession fetches one session template of a schedule.
func (h *ScheduleHandler) GetSession(c *gin.Context) {
	sess, err := h.schedules.GetSession(c.Request.Context(), c.Param("id"), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sess)
}

// ListOccurrences lists the schedule's generated occurrences.
func (h *ScheduleHandler) ListOccurrences(c *gin.Context) {
	occurrences, err := h.schedules.ListOccurrences(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences)
}

// GetGenerationConfig fetches the stored generation window.
func (h *ScheduleHandler) GetGenerationConfig(c *gin.Context) {
	cfg, err := h.schedules.GetGenerationConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg)
}

// SaveGenerationConfig upserts the generation window for a schedule.
func (h *ScheduleHandler) SaveGenerationConfig(c *gin.Context) {
	var req service.SaveGenerationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cfg, err := h.schedules.SaveGenerationConfig(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg)
}

// Export streams the schedule's occurrences as csv or pdf.
func (h *ScheduleHandler) Export(c *gin.Context) {
	scheduleID := c.Param("id")
	format := c.Param("format")

	var (
		payload     []byte
		filename    string
		contentType string
		err         error
	)
	switch format {
	case "csv":
		payload, filename, err = h.exports.ExportCSV(c.Request.Context(), scheduleID)
		contentType = "text/csv"
	case "pdf":
		payload, filename, err = h.exports.ExportPDF(c.Request.Context(), scheduleID)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
