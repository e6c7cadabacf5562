package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/assignment"
	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/middleware"
	"github.com/cleancare/backend/internal/repository"
	"github.com/cleancare/backend/internal/scope"
)

// AssignmentHandler administers staff scope: zone grants for
// ZONE_ADMINs and the single-valued ward/city pointers for the other
// two roles.
type AssignmentHandler struct {
	store    *assignment.Store
	staff    repository.StaffRepository
	resolver *scope.Resolver
	logger   *zap.Logger
}

func NewAssignmentHandler(store *assignment.Store, staff repository.StaffRepository, resolver *scope.Resolver, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{store: store, staff: staff, resolver: resolver, logger: logger}
}

func (h *AssignmentHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, assignment.ErrStaffNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, assignment.ErrRoleMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, assignment.ErrNotAssigned):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, geo.ErrInvalidGeography):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("assignment operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assignment operation failed"})
	}
}

func staffIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid staff id"})
		return uuid.Nil, false
	}
	return id, true
}

type assignZoneRequest struct {
	ZoneID string `json:"zone_id" binding:"required,uuid"`
}

// AssignZone handles POST /v1/admin/staff/:id/zones. Granting a zone
// the staff member already holds returns 200 with assigned=false — an
// idempotent no-op, not an error.
func (h *AssignmentHandler) AssignZone(c *gin.Context) {
	staffID, ok := staffIDParam(c)
	if !ok {
		return
	}

	var req assignZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zoneID, _ := uuid.Parse(req.ZoneID)

	caller := middleware.GetSubjectID(c)
	if err := h.store.AssignZone(c.Request.Context(), staffID, zoneID, &caller); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

// UnassignZone handles DELETE /v1/admin/staff/:id/zones/:zoneID
func (h *AssignmentHandler) UnassignZone(c *gin.Context) {
	staffID, ok := staffIDParam(c)
	if !ok {
		return
	}
	zoneID, err := uuid.Parse(c.Param("zoneID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
		return
	}

	if err := h.store.UnassignZone(c.Request.Context(), staffID, zoneID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unassigned"})
}

// ListZones handles GET /v1/admin/staff/:id/zones
func (h *AssignmentHandler) ListZones(c *gin.Context) {
	staffID, ok := staffIDParam(c)
	if !ok {
		return
	}

	assignments, err := h.store.Assignments(c.Request.Context(), staffID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignments)
}

type setWardRequest struct {
	WardID string `json:"ward_id" binding:"required,uuid"`
}

// SetWard handles PUT /v1/admin/staff/:id/ward
func (h *AssignmentHandler) SetWard(c *gin.Context) {
	staffID, ok := staffIDParam(c)
	if !ok {
		return
	}

	var req setWardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wardID, _ := uuid.Parse(req.WardID)

	if err := h.store.SetWardAssignment(c.Request.Context(), staffID, wardID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

type setCityRequest struct {
	CityCorporationCode string `json:"city_corporation_code" binding:"required"`
}

// SetCity handles PUT /v1/admin/staff/:id/city
func (h *AssignmentHandler) SetCity(c *gin.Context) {
	staffID, ok := staffIDParam(c)
	if !ok {
		return
	}

	var req setCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetCityAssignment(c.Request.Context(), staffID, req.CityCorporationCode); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

// MyScope handles GET /v1/admin/me/scope — the caller's resolved
// predicate plus the concrete ward set it currently expands to.
// Useful for the admin UI and for debugging "why can't I see this"
// tickets without grepping the database.
func (h *AssignmentHandler) MyScope(c *gin.Context) {
	staff, err := h.staff.GetByID(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown staff"})
		return
	}

	pred, err := h.resolver.Resolve(c.Request.Context(), staff)
	if err != nil {
		h.respondError(c, err)
		return
	}
	wards, err := h.resolver.CoveredWards(c.Request.Context(), pred)
	if err != nil {
		h.respondError(c, err)
		return
	}

	wardIDs := make([]uuid.UUID, 0, len(wards))
	for id := range wards {
		wardIDs = append(wardIDs, id)
	}

	filter := pred.Filter()
	c.JSON(http.StatusOK, gin.H{
		"role":                   staff.Role,
		"city_corporation_codes": filter.CityCorporationCodes,
		"zone_ids":               filter.ZoneIDs,
		"ward_ids":               filter.WardIDs,
		"covered_ward_ids":       wardIDs,
		"unscoped":               pred.IsEmpty(),
	})
}
