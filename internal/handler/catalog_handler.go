package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/service"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/response"
)

// CatalogHandler exposes the scheduling reference data endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListPeriods godoc
// @Summary List a tenant's periods
// @Tags Catalog
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/periods [get]
func (h *CatalogHandler) ListPeriods(c *gin.Context) {
	periods, err := h.catalog.ListPeriods(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// CreatePeriod godoc
// @Summary Register a bookable time slot
// @Tags Catalog
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param request body dto.CreatePeriodRequest true "Period"
// @Success 201 {object} response.Envelope
// @Router /tenants/{tenantId}/periods [post]
func (h *CatalogHandler) CreatePeriod(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload"))
		return
	}
	period, err := h.catalog.CreatePeriod(c.Request.Context(), c.Param("tenantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// DeletePeriod godoc
// @Summary Delete a period
// @Tags Catalog
// @Param tenantId path string true "Tenant ID"
// @Param id path string true "Period ID"
// @Success 204
// @Router /tenants/{tenantId}/periods/{id} [delete]
func (h *CatalogHandler) DeletePeriod(c *gin.Context) {
	if err := h.catalog.DeletePeriod(c.Request.Context(), c.Param("tenantId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListRooms godoc
// @Summary List a tenant's rooms
// @Tags Catalog
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/rooms [get]
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.catalog.ListRooms(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// CreateRoom godoc
// @Summary Register a room
// @Tags Catalog
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param request body dto.CreateRoomRequest true "Room"
// @Success 201 {object} response.Envelope
// @Router /tenants/{tenantId}/rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload"))
		return
	}
	room, err := h.catalog.CreateRoom(c.Request.Context(), c.Param("tenantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// DeleteRoom godoc
// @Summary Delete a room
// @Tags Catalog
// @Param tenantId path string true "Tenant ID"
// @Param id path string true "Room ID"
// @Success 204
// @Router /tenants/{tenantId}/rooms/{id} [delete]
func (h *CatalogHandler) DeleteRoom(c *gin.Context) {
	if err := h.catalog.DeleteRoom(c.Request.Context(), c.Param("tenantId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCapabilities godoc
// @Summary List a tenant's capability assignments
// @Tags Catalog
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/capabilities [get]
func (h *CatalogHandler) ListCapabilities(c *gin.Context) {
	capabilities, err := h.catalog.ListCapabilities(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, capabilities, nil)
}

// CreateCapability godoc
// @Summary Register a teaching obligation
// @Tags Catalog
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param request body dto.CreateCapabilityRequest true "Capability"
// @Success 201 {object} response.Envelope
// @Router /tenants/{tenantId}/capabilities [post]
func (h *CatalogHandler) CreateCapability(c *gin.Context) {
	var req dto.CreateCapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capability payload"))
		return
	}
	capability, err := h.catalog.CreateCapability(c.Request.Context(), c.Param("tenantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, capability)
}

// UpdateCapability godoc
// @Summary Adjust a capability's weekly quota
// @Tags Catalog
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param id path string true "Capability ID"
// @Param request body dto.UpdateCapabilityRequest true "New quota"
// @Success 200 {object} response.Envelope
// @Router /tenants/{tenantId}/capabilities/{id} [patch]
func (h *CatalogHandler) UpdateCapability(c *gin.Context) {
	var req dto.UpdateCapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capability payload"))
		return
	}
	capability, err := h.catalog.UpdateCapabilityQuota(c.Request.Context(), c.Param("tenantId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, capability, nil)
}

// DeleteCapability godoc
// @Summary Delete a capability
// @Tags Catalog
// @Param tenantId path string true "Tenant ID"
// @Param id path string true "Capability ID"
// @Success 204
// @Router /tenants/{tenantId}/capabilities/{id} [delete]
func (h *CatalogHandler) DeleteCapability(c *gin.Context) {
	if err := h.catalog.DeleteCapability(c.Request.Context(), c.Param("tenantId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
