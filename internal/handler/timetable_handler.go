package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/jobs"
	"github.com/campushq/timetable-api/pkg/response"
)

// TimetableHandler exposes the scheduling endpoints.
type TimetableHandler struct {
	scheduler    *service.SchedulerService
	auditor      *service.AuditService
	substitution *service.SubstitutionService
	timetable    *service.TimetableService
	queue        *jobs.Queue
}

// NewTimetableHandler constructs handler. queue may be nil, which disables
// async generation.
func NewTimetableHandler(
	scheduler *service.SchedulerService,
	auditor *service.AuditService,
	substitution *service.SubstitutionService,
	timetable *service.TimetableService,
	queue *jobs.Queue,
) *TimetableHandler {
	return &TimetableHandler{
		scheduler:    scheduler,
		auditor:      auditor,
		substitution: substitution,
		timetable:    timetable,
		queue:        queue,
	}
}

// Generate godoc
// @Summary Regenerate a tenant's timetable
// @Tags Timetable
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param async query bool false "Queue the run instead of waiting"
// @Param request body dto.GenerateTimetableRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tenants/{tenantId}/timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	tenantID := c.Param("tenantId")

	var req dto.GenerateTimetableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload"))
			return
		}
	}

	if c.Query("async") == "true" {
		if h.queue == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "async generation is not enabled"))
			return
		}
		jobID := uuid.NewString()
		err := h.queue.Enqueue(jobs.Job{
			ID: jobID,
			Payload: jobs.GeneratePayload{
				TenantID:      tenantID,
				Strategy:      req.Strategy,
				AllocateRooms: req.AllocateRooms,
				AllOrNothing:  req.AllOrNothing,
			},
		})
		if err != nil {
			if errors.Is(err, jobs.ErrTenantQueued) {
				response.Error(c, appErrors.Clone(appErrors.ErrGenerationBusy, "a regeneration is already queued for this tenant"))
				return
			}
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation"))
			return
		}
		response.JSON(c, http.StatusAccepted, dto.AsyncAccepted{JobID: jobID, TenantID: tenantID, Status: "QUEUED"}, nil)
		return
	}

	result, err := h.scheduler.Generate(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	// An uncommitted result means an all-or-nothing run was rejected; the
	// deficit list in the body says which quotas could not be met.
	status := http.StatusOK
	if !result.Committed {
		if result.TimedOut {
			status = appErrors.ErrSolverTimeout.Status
		} else {
			status = appErrors.ErrInfeasibleQuota.Status
		}
	}
	response.JSON(c, status, result, nil)
}

// Audit godoc
// @Summary Audit a tenant's timetable for conflicts and quota mismatches
// @Tags Timetable
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param strict query bool false "Escalate quota under-counts to errors"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tenants/{tenantId}/timetable/audit [get]
func (h *TimetableHandler) Audit(c *gin.Context) {
	strict := c.Query("strict") == "true"
	report, err := h.auditor.Audit(c.Request.Context(), c.Param("tenantId"), strict)
	if err != nil {
		response.Error(c, err)
		return
	}
	// A blocking report signals corrupted or bypassed writes; consumers
	// polling this endpoint must treat the schedule as unusable.
	status := http.StatusOK
	if report.Blocking {
		status = appErrors.ErrInvariantViolation.Status
	}
	response.JSON(c, status, report, nil)
}

// Substitute godoc
// @Summary Reassign an absent teacher's lessons for one day
// @Tags Timetable
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param request body dto.SubstituteRequest true "Absence details"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/timetable/substitute [post]
func (h *TimetableHandler) Substitute(c *gin.Context) {
	var req dto.SubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute payload"))
		return
	}

	result, err := h.substitution.Substitute(c.Request.Context(), c.Param("tenantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List timetable entries
// @Tags Timetable
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param teacherId query string false "Filter by teacher"
// @Param classGroupId query string false "Filter by class group"
// @Param dayOfWeek query int false "Filter by weekday (1=Monday)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var filter models.TimetableFilter
	filter.TeacherID = c.Query("teacherId")
	filter.ClassGroupID = c.Query("classGroupId")
	if day, err := strconv.Atoi(c.DefaultQuery("dayOfWeek", "0")); err == nil {
		filter.DayOfWeek = day
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	entries, pagination, err := h.timetable.List(c.Request.Context(), c.Param("tenantId"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Weekly godoc
// @Summary Weekly timetable view for one class group or teacher
// @Tags Timetable
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param classGroupId query string false "Class group scope"
// @Param teacherId query string false "Teacher scope"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/timetable/weekly [get]
func (h *TimetableHandler) Weekly(c *gin.Context) {
	var query dto.WeeklyTimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly query"))
		return
	}

	view, err := h.timetable.Weekly(c.Request.Context(), c.Param("tenantId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Export the weekly timetable as CSV or PDF
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param tenantId path string true "Tenant ID"
// @Param classGroupId query string false "Class group scope"
// @Param teacherId query string false "Teacher scope"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /tenants/{tenantId}/timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.WeeklyTimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query"))
		return
	}

	payload, contentType, err := h.timetable.Export(c.Request.Context(), c.Param("tenantId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := "timetable.csv"
	if contentType == "application/pdf" {
		filename = "timetable.pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
