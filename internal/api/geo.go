package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/migrate"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// GeoHandler administers the geography tree. Every write goes through
// the tree's validation hooks first and invalidates the expansion
// cache before the response is sent, so no reader ever expands a
// stale tree.
type GeoHandler struct {
	repo     repository.GeoRepository
	tree     *geo.Tree
	migrator *migrate.ThanaMigrator
	logger   *zap.Logger
}

func NewGeoHandler(repo repository.GeoRepository, tree *geo.Tree, migrator *migrate.ThanaMigrator, logger *zap.Logger) *GeoHandler {
	return &GeoHandler{repo: repo, tree: tree, migrator: migrator, logger: logger}
}

type createCityCorporationRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	MinWard int    `json:"min_ward" binding:"required,min=1"`
	MaxWard int    `json:"max_ward" binding:"required,min=1"`
}

// CreateCityCorporation handles POST /v1/admin/city-corporations
func (h *GeoHandler) CreateCityCorporation(c *gin.Context) {
	var req createCityCorporationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxWard < req.MinWard {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_ward must be >= min_ward"})
		return
	}

	cc, err := h.repo.CreateCityCorporation(c.Request.Context(), &models.CityCorporation{
		Code:    req.Code,
		Name:    req.Name,
		MinWard: req.MinWard,
		MaxWard: req.MaxWard,
		Status:  models.StatusActive,
	})
	if err != nil {
		h.logger.Error("failed to create city corporation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create city corporation"})
		return
	}

	c.JSON(http.StatusCreated, cc)
}

// ListCityCorporations handles GET /v1/city-corporations
func (h *GeoHandler) ListCityCorporations(c *gin.Context) {
	ccs, err := h.repo.ListCityCorporations(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list city corporations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list city corporations"})
		return
	}
	c.JSON(http.StatusOK, ccs)
}

// ListZones handles GET /v1/city-corporations/:code/zones
func (h *GeoHandler) ListZones(c *gin.Context) {
	zones, err := h.repo.ZonesByCityCorporation(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.logger.Error("failed to list zones", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list zones"})
		return
	}
	c.JSON(http.StatusOK, zones)
}

type createZoneRequest struct {
	ZoneNumber          int    `json:"zone_number" binding:"required,min=1"`
	CityCorporationCode string `json:"city_corporation_code" binding:"required"`
	Name                string `json:"name" binding:"required"`
	OfficerName         string `json:"officer_name"`
	OfficerContact      string `json:"officer_contact"`
}

// CreateZone handles POST /v1/admin/zones
func (h *GeoHandler) CreateZone(c *gin.Context) {
	var req createZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone := &models.Zone{
		ZoneNumber:          req.ZoneNumber,
		CityCorporationCode: req.CityCorporationCode,
		Name:                req.Name,
		OfficerName:         req.OfficerName,
		OfficerContact:      req.OfficerContact,
		Status:              models.StatusActive,
	}
	if err := h.tree.ValidateNewZone(c.Request.Context(), zone); err != nil {
		respondGeoError(c, h.logger, err)
		return
	}

	out, err := h.repo.CreateZone(c.Request.Context(), zone)
	if err != nil {
		h.logger.Error("failed to create zone", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create zone"})
		return
	}

	// Invalidate before responding: once the client sees the zone, every
	// CITY_ADMIN on this corporation already covers it.
	h.tree.InvalidateCache()
	c.JSON(http.StatusCreated, out)
}

// ListWards handles GET /v1/zones/:id/wards
func (h *GeoHandler) ListWards(c *gin.Context) {
	zoneID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
		return
	}

	wards, err := h.repo.WardsByZone(c.Request.Context(), zoneID)
	if err != nil {
		h.logger.Error("failed to list wards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list wards"})
		return
	}
	c.JSON(http.StatusOK, wards)
}

type createWardRequest struct {
	WardNumber       int    `json:"ward_number" binding:"required,min=1"`
	ZoneID           string `json:"zone_id" binding:"required,uuid"`
	InspectorName    string `json:"inspector_name"`
	InspectorContact string `json:"inspector_contact"`
}

// CreateWard handles POST /v1/admin/wards
func (h *GeoHandler) CreateWard(c *gin.Context) {
	var req createWardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zoneID, err := uuid.Parse(req.ZoneID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
		return
	}

	ward := &models.Ward{
		WardNumber:       req.WardNumber,
		ZoneID:           zoneID,
		InspectorName:    req.InspectorName,
		InspectorContact: req.InspectorContact,
		Status:           models.StatusActive,
	}
	if err := h.tree.ValidateNewWard(c.Request.Context(), ward); err != nil {
		respondGeoError(c, h.logger, err)
		return
	}

	out, err := h.repo.CreateWard(c.Request.Context(), ward)
	if err != nil {
		h.logger.Error("failed to create ward", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create ward"})
		return
	}

	h.tree.InvalidateCache()
	c.JSON(http.StatusCreated, out)
}

// ListThanas handles GET /v1/thanas — the legacy layer stays readable
// for historical complaints.
func (h *GeoHandler) ListThanas(c *gin.Context) {
	thanas, err := h.repo.ListThanas(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list thanas", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list thanas"})
		return
	}
	c.JSON(http.StatusOK, thanas)
}

type mapThanaRequest struct {
	ZoneID string `json:"zone_id" binding:"required,uuid"`
	WardID string `json:"ward_id" binding:"required,uuid"`
}

// MapThana handles PUT /v1/admin/thanas/:id/mapping
func (h *GeoHandler) MapThana(c *gin.Context) {
	thanaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thana id"})
		return
	}

	var req mapThanaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zoneID, _ := uuid.Parse(req.ZoneID)
	wardID, _ := uuid.Parse(req.WardID)

	if err := h.migrator.MapThana(c.Request.Context(), thanaID, zoneID, wardID); err != nil {
		respondGeoError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "mapped"})
}

// RunThanaMigration handles POST /v1/admin/migrations/thana — the
// idempotent backfill of incident locations on pre-migration
// complaints. Safe to run repeatedly.
func (h *GeoHandler) RunThanaMigration(c *gin.Context) {
	res, err := h.migrator.Run(c.Request.Context())
	if err != nil {
		respondGeoError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"backfilled":      res.Backfilled,
		"unmapped_thanas": res.UnmappedThanas,
	})
}
