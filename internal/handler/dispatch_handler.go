package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-api/internal/dto"
	"github.com/fieldserve/dispatch-api/internal/service"
	appErrors "github.com/fieldserve/dispatch-api/pkg/errors"
	"github.com/fieldserve/dispatch-api/pkg/response"
)

// DispatchHandler manages scheduling decision endpoints.
type DispatchHandler struct {
	service *service.DispatchService
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(svc *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{service: svc}
}

// AutoAssign godoc
// @Summary Auto-assign unassigned jobs for a date
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.AutoAssignRequest true "Auto-assign request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/auto-assign [post]
func (h *DispatchHandler) AutoAssign(c *gin.Context) {
	var req dto.AutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.AutoAssign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ScoreJob godoc
// @Summary Score all technicians against one job
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.ScoreRequest true "Score request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/score [post]
func (h *DispatchHandler) ScoreJob(c *gin.Context) {
	var req dto.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	scores, err := h.service.ScoreJob(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// NextSlot godoc
// @Summary Find the next open booking window for a technician
// @Tags Dispatch
// @Produce json
// @Param techId query string true "Technician ID"
// @Param durationMinutes query int true "Job duration in minutes"
// @Param startDate query string true "Search start date (YYYY-MM-DD)"
// @Param timezone query string false "IANA timezone"
// @Param maxDays query int false "Days to scan"
// @Success 200 {object} response.Envelope
// @Router /dispatch/next-slot [get]
func (h *DispatchHandler) NextSlot(c *gin.Context) {
	var query dto.NextSlotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	slot, err := h.service.NextSlot(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if slot == nil {
		response.JSON(c, http.StatusOK, nil, nil, map[string]interface{}{"found": false})
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Suggestions godoc
// @Summary Generate ranked scheduling suggestions for a job
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.SuggestionsRequest true "Suggestions request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/suggestions [post]
func (h *DispatchHandler) Suggestions(c *gin.Context) {
	var req dto.SuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	suggestions, err := h.service.Suggestions(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestions, nil)
}

// CheckSlot godoc
// @Summary Validate one offered time slot for a technician
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.SlotCheckRequest true "Slot check request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/check-slot [post]
func (h *DispatchHandler) CheckSlot(c *gin.Context) {
	var req dto.SlotCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.CheckSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Validate a job's assigned crew against its requirements
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.ValidateRequest true "Validate request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/validate [post]
func (h *DispatchHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	report, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// RouteOrder godoc
// @Summary Order a technician's day by travel distance
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.RouteOrderRequest true "Route order request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/route-order [post]
func (h *DispatchHandler) RouteOrder(c *gin.Context) {
	var req dto.RouteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	plan, err := h.service.RouteOrder(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// RouteSheet godoc
// @Summary Download a technician's route sheet
// @Tags Dispatch
// @Produce application/pdf,text/csv
// @Param techId query string true "Technician ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /dispatch/route-sheet [get]
func (h *DispatchHandler) RouteSheet(c *gin.Context) {
	var query dto.RouteSheetQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	payload, contentType, err := h.service.RouteSheet(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "pdf"
	if contentType == "text/csv" {
		ext = "csv"
	}
	filename := fmt.Sprintf("route-sheet-%s-%s.%s", query.TechID, query.Date, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// StaffingSummary godoc
// @Summary Aggregate crew demand versus availability for a date
// @Tags Dispatch
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /dispatch/staffing [get]
func (h *DispatchHandler) StaffingSummary(c *gin.Context) {
	var query dto.StaffingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	summary, err := h.service.StaffingSummary(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Assign godoc
// @Summary Assign a crew to a job
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.AssignRequest true "Assign request"
// @Success 204
// @Router /dispatch/assign [post]
func (h *DispatchHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.Assign(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unassign godoc
// @Summary Remove technicians from a job
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.UnassignRequest true "Unassign request"
// @Success 204
// @Router /dispatch/unassign [post]
func (h *DispatchHandler) Unassign(c *gin.Context) {
	var req dto.UnassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.Unassign(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkAssign godoc
// @Summary Assign several jobs in one atomic batch
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.BulkAssignRequest true "Bulk assign request"
// @Success 204
// @Router /dispatch/bulk-assign [post]
func (h *DispatchHandler) BulkAssign(c *gin.Context) {
	var req dto.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.BulkAssign(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BatchReschedule godoc
// @Summary Move several jobs in one atomic batch
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.BatchRescheduleRequest true "Batch reschedule request"
// @Success 204
// @Router /dispatch/reschedule [post]
func (h *DispatchHandler) BatchReschedule(c *gin.Context) {
	var req dto.BatchRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.BatchReschedule(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CancelCleanup godoc
// @Summary Cancel a job and release its crew
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body dto.CancelCleanupRequest true "Cancel request"
// @Success 204
// @Router /dispatch/cancel [post]
func (h *DispatchHandler) CancelCleanup(c *gin.Context) {
	var req dto.CancelCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.CancelCleanup(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PlanMultiDay godoc
// @Summary Build and store a multi-day plan for a long job
// @Tags Dispatch
// @Accept json
// @Produce json
// @Param payload body object true "Plan request"
// @Success 200 {object} response.Envelope
// @Router /dispatch/multi-day [post]
func (h *DispatchHandler) PlanMultiDay(c *gin.Context) {
	var req struct {
		JobID     string `json:"jobId" binding:"required"`
		TechID    string `json:"techId" binding:"required"`
		StartDate string `json:"startDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	schedule, err := h.service.PlanMultiDay(c.Request.Context(), req.JobID, req.TechID, req.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
