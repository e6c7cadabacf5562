package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/location"
	"github.com/cleancare/backend/internal/middleware"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
	"github.com/cleancare/backend/internal/scope"
)

// ComplaintHandler serves citizen submission and staff triage. All
// staff reads funnel through the resolved scope predicate; an empty
// predicate sees nothing.
type ComplaintHandler struct {
	complaints repository.ComplaintRepository
	citizens   repository.CitizenRepository
	staff      repository.StaffRepository
	tree       *geo.Tree
	sync       *location.Sync
	resolver   *scope.Resolver
	logger     *zap.Logger
}

func NewComplaintHandler(
	complaints repository.ComplaintRepository,
	citizens repository.CitizenRepository,
	staff repository.StaffRepository,
	tree *geo.Tree,
	sync *location.Sync,
	resolver *scope.Resolver,
	logger *zap.Logger,
) *ComplaintHandler {
	return &ComplaintHandler{
		complaints: complaints,
		citizens:   citizens,
		staff:      staff,
		tree:       tree,
		sync:       sync,
		resolver:   resolver,
		logger:     logger,
	}
}

type createComplaintRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`

	// Optional: where the problem actually is, when it is not where the
	// reporter lives. All three or none.
	IncidentCityCorporationCode string `json:"incident_city_corporation_code"`
	IncidentZoneID              string `json:"incident_zone_id"`
	IncidentWardID              string `json:"incident_ward_id"`
}

func (r *createComplaintRequest) hasIncident() bool {
	return r.IncidentCityCorporationCode != "" || r.IncidentZoneID != "" || r.IncidentWardID != ""
}

// Create handles POST /v1/citizen/complaints. The reporter triple is
// copied from the citizen's profile; the incident triple is either the
// explicitly supplied (validated) location or derived from the
// reporter triple.
func (h *ComplaintHandler) Create(c *gin.Context) {
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	citizen, err := h.citizens.GetByID(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Error("failed to load citizen", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create complaint"})
		return
	}
	if citizen == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown citizen"})
		return
	}

	complaint := models.Complaint{
		CitizenID:                   citizen.ID,
		Title:                       req.Title,
		Description:                 req.Description,
		Category:                    req.Category,
		Status:                      models.ComplaintPending,
		ReporterCityCorporationCode: citizen.CityCorporationCode,
		ReporterZoneID:              citizen.ZoneID,
		ReporterWardID:              citizen.WardID,
	}

	if req.hasIncident() {
		point, err := parseGeoPoint(req.IncidentCityCorporationCode, req.IncidentZoneID, req.IncidentWardID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "incident location must be a complete ward/zone/city-corporation triple"})
			return
		}
		if err := h.tree.ValidatePoint(c.Request.Context(), point); err != nil {
			respondGeoError(c, h.logger, err)
			return
		}
		complaint.IncidentCityCorporationCode = &point.CityCorporationCode
		complaint.IncidentZoneID = &point.ZoneID
		complaint.IncidentWardID = &point.WardID
	} else {
		complaint = location.DeriveIncidentLocation(complaint, citizen.GeoPoint())
	}

	out, err := h.complaints.Create(c.Request.Context(), &complaint)
	if err != nil {
		h.logger.Error("failed to create complaint", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create complaint"})
		return
	}

	c.JSON(http.StatusCreated, out)
}

// ListOwn handles GET /v1/citizen/complaints
func (h *ComplaintHandler) ListOwn(c *gin.Context) {
	limit, offset := pagination(c)
	complaints, err := h.complaints.ListByCitizen(c.Request.Context(), middleware.GetSubjectID(c), limit, offset)
	if err != nil {
		h.logger.Error("failed to list complaints", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list complaints"})
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// resolveCaller loads the calling staff member and their predicate.
func (h *ComplaintHandler) resolveCaller(c *gin.Context) (*models.StaffIdentity, scope.Predicate, bool) {
	staff, err := h.staff.GetByID(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Error("failed to load staff", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, scope.Predicate{}, false
	}
	if staff == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown staff"})
		return nil, scope.Predicate{}, false
	}

	pred, err := h.resolver.Resolve(c.Request.Context(), staff)
	if err != nil {
		h.logger.Error("failed to resolve scope", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, scope.Predicate{}, false
	}
	return staff, pred, true
}

// ListScoped handles GET /v1/admin/complaints — the staff triage list,
// filtered to the caller's resolved scope. An unscoped staff member
// gets an empty list, not everything.
func (h *ComplaintHandler) ListScoped(c *gin.Context) {
	_, pred, ok := h.resolveCaller(c)
	if !ok {
		return
	}
	if pred.IsEmpty() {
		c.JSON(http.StatusOK, []models.Complaint{})
		return
	}

	limit, offset := pagination(c)
	complaints, err := h.complaints.ListByScope(c.Request.Context(), pred.Filter(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list scoped complaints", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list complaints"})
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func (h *ComplaintHandler) loadInScope(c *gin.Context) (*models.Complaint, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid complaint id"})
		return nil, false
	}

	_, pred, ok := h.resolveCaller(c)
	if !ok {
		return nil, false
	}

	complaint, err := h.complaints.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get complaint", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get complaint"})
		return nil, false
	}
	// Out-of-scope and nonexistent are indistinguishable on purpose.
	if complaint == nil || !pred.Matches(complaintScopeLocation(complaint)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "complaint not found"})
		return nil, false
	}
	return complaint, true
}

// GetScoped handles GET /v1/admin/complaints/:id
func (h *ComplaintHandler) GetScoped(c *gin.Context) {
	complaint, ok := h.loadInScope(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, complaint)
}

type updateStatusRequest struct {
	Status models.ComplaintStatus `json:"status" binding:"required,oneof=PENDING APPROVED REJECTED RESOLVED"`
}

// UpdateStatus handles PATCH /v1/admin/complaints/:id/status
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	complaint, ok := h.loadInScope(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.complaints.UpdateStatus(c.Request.Context(), complaint.ID, req.Status); err != nil {
		h.logger.Error("failed to update complaint status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

type relocateRequest struct {
	CityCorporationCode string `json:"city_corporation_code" binding:"required"`
	ZoneID              string `json:"zone_id" binding:"required,uuid"`
	WardID              string `json:"ward_id" binding:"required,uuid"`
}

// Relocate handles PUT /v1/admin/complaints/:id/location — the
// explicit relocation edit, the only path allowed to overwrite an
// already-set incident triple.
func (h *ComplaintHandler) Relocate(c *gin.Context) {
	complaint, ok := h.loadInScope(c)
	if !ok {
		return
	}

	var req relocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	point, err := parseGeoPoint(req.CityCorporationCode, req.ZoneID, req.WardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sync.SetIncidentLocation(c.Request.Context(), complaint.ID, point); err != nil {
		respondGeoError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "relocated"})
}

// RunBackfill handles POST /v1/admin/complaints/backfill — the
// idempotent incident-location backfill sweep.
func (h *ComplaintHandler) RunBackfill(c *gin.Context) {
	updated, err := h.sync.Backfill(c.Request.Context())
	if err != nil {
		h.logger.Error("backfill failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backfill failed", "updated": updated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// complaintScopeLocation mirrors the guard's rule: incident triple,
// falling back to the reporter triple for legacy rows only.
func complaintScopeLocation(c *models.Complaint) models.GeoPoint {
	if loc, ok := c.IncidentLocation(); ok {
		return loc
	}
	return c.ReporterLocation()
}
