package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-api/internal/dto"
	"github.com/fieldserve/dispatch-api/internal/models"
	"github.com/fieldserve/dispatch-api/internal/repository"
	appErrors "github.com/fieldserve/dispatch-api/pkg/errors"
	"github.com/fieldserve/dispatch-api/pkg/response"
)

// ResourceHandler serves read access to the scheduling entities.
type ResourceHandler struct {
	jobs     *repository.JobRepository
	techs    *repository.TechnicianRepository
	timeOff  *repository.TimeOffRepository
	vehicles *repository.VehicleRepository
}

// NewResourceHandler constructs handler.
func NewResourceHandler(jobs *repository.JobRepository, techs *repository.TechnicianRepository, timeOff *repository.TimeOffRepository, vehicles *repository.VehicleRepository) *ResourceHandler {
	return &ResourceHandler{jobs: jobs, techs: techs, timeOff: timeOff, vehicles: vehicles}
}

// ListJobs godoc
// @Summary List jobs
// @Tags Resources
// @Produce json
// @Param status query string false "Job status"
// @Param date query string false "Scheduled date (YYYY-MM-DD)"
// @Param techId query string false "Assigned technician ID"
// @Param unassigned query bool false "Only jobs with no assigned technicians"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *ResourceHandler) ListJobs(c *gin.Context) {
	var query dto.JobListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, total, err := h.jobs.List(c.Request.Context(), models.JobFilter{
		Status:        query.Status,
		ScheduledDate: query.Date,
		TechID:        query.TechID,
		Zip:           query.Zip,
		Unassigned:    query.Unassigned,
		Page:          query.Page,
		PageSize:      query.PageSize,
		SortBy:        query.SortBy,
		SortOrder:     query.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paginationFor(query.Page, query.PageSize, total))
}

// ListTechnicians godoc
// @Summary List technicians
// @Tags Resources
// @Produce json
// @Param search query string false "Name search"
// @Param active query bool false "Active flag"
// @Param skill query string false "Required skill"
// @Success 200 {object} response.Envelope
// @Router /technicians [get]
func (h *ResourceHandler) ListTechnicians(c *gin.Context) {
	var query dto.TechnicianListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, total, err := h.techs.List(c.Request.Context(), models.TechnicianFilter{
		Search:    query.Search,
		Active:    query.Active,
		Skill:     query.Skill,
		Zone:      query.Zone,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paginationFor(query.Page, query.PageSize, total))
}

// ListVehicles godoc
// @Summary List vehicles
// @Tags Resources
// @Produce json
// @Param active query bool false "Active flag"
// @Param minCapacity query int false "Minimum passenger capacity"
// @Success 200 {object} response.Envelope
// @Router /vehicles [get]
func (h *ResourceHandler) ListVehicles(c *gin.Context) {
	var query dto.VehicleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, err := h.vehicles.List(c.Request.Context(), models.VehicleFilter{
		Active:      query.Active,
		MinCapacity: query.MinCapacity,
		Page:        query.Page,
		PageSize:    query.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListTimeOff godoc
// @Summary List time-off entries
// @Tags Resources
// @Produce json
// @Param techId query string false "Technician ID"
// @Param from query string false "Range start (YYYY-MM-DD), defaults to today"
// @Param to query string false "Range end (YYYY-MM-DD), defaults to thirty days out"
// @Success 200 {object} response.Envelope
// @Router /time-off [get]
func (h *ResourceHandler) ListTimeOff(c *gin.Context) {
	var query dto.TimeOffListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	from := query.From
	if from == "" {
		from = time.Now().Format("2006-01-02")
	}
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}

	if query.TechID != "" {
		entries, err := h.timeOff.ListByTech(c.Request.Context(), query.TechID, from)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, entries, nil)
		return
	}

	to := query.To
	if to == "" {
		to = start.AddDate(0, 0, 30).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", to); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}
	entries, err := h.timeOff.ListOverlapping(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// paginationFor mirrors the repository layer's page normalization.
func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	pages := (total + size - 1) / size
	return &models.Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages}
}
