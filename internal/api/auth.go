package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleancare/backend/internal/auth"
	"github.com/cleancare/backend/internal/config"
	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// AuthHandler issues tokens for staff and citizens. The token carries
// identity only; every scope decision is made against the live
// assignment state, never against anything baked into the token.
type AuthHandler struct {
	staff    repository.StaffRepository
	citizens repository.CitizenRepository
	tree     *geo.Tree
	cfg      *config.Config
	logger   *zap.Logger
}

func NewAuthHandler(staff repository.StaffRepository, citizens repository.CitizenRepository, tree *geo.Tree, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{staff: staff, citizens: citizens, tree: tree, cfg: cfg, logger: logger}
}

type staffLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// StaffLogin handles POST /v1/auth/staff/login
func (h *AuthHandler) StaffLogin(c *gin.Context) {
	var req staffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staff, err := h.staff.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("staff login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	// Same response for unknown email and wrong password.
	if staff == nil || bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if staff.Status != models.StatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	token, err := auth.GenerateToken(staff.ID, auth.KindStaff, staff.Role, h.cfg.JWTSecret, h.cfg.JWTTTL)
	if err != nil {
		h.logger.Error("failed to sign staff token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "staff": staff})
}

type citizenLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CitizenLogin handles POST /v1/auth/citizen/login
func (h *AuthHandler) CitizenLogin(c *gin.Context) {
	var req citizenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	citizen, err := h.citizens.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil {
		h.logger.Error("citizen login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if citizen == nil || bcrypt.CompareHashAndPassword([]byte(citizen.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(citizen.ID, auth.KindCitizen, "", h.cfg.JWTSecret, h.cfg.JWTTTL)
	if err != nil {
		h.logger.Error("failed to sign citizen token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "citizen": citizen})
}

type citizenRegisterRequest struct {
	Phone               string `json:"phone" binding:"required"`
	Name                string `json:"name" binding:"required"`
	Password            string `json:"password" binding:"required,min=8"`
	CityCorporationCode string `json:"city_corporation_code" binding:"required"`
	ZoneID              string `json:"zone_id" binding:"required,uuid"`
	WardID              string `json:"ward_id" binding:"required,uuid"`
}

// CitizenRegister handles POST /v1/auth/citizen/register. The profile
// location triple is validated as a chain before the account exists —
// a citizen can never be created pointing at geography that doesn't
// hold together.
func (h *AuthHandler) CitizenRegister(c *gin.Context) {
	var req citizenRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	point, err := parseGeoPoint(req.CityCorporationCode, req.ZoneID, req.WardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.tree.ValidatePoint(c.Request.Context(), point); err != nil {
		respondGeoError(c, h.logger, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	citizen, err := h.citizens.Create(c.Request.Context(), &models.Citizen{
		Phone:               req.Phone,
		Name:                req.Name,
		PasswordHash:        string(hash),
		CityCorporationCode: point.CityCorporationCode,
		ZoneID:              point.ZoneID,
		WardID:              point.WardID,
	})
	if err != nil {
		h.logger.Error("failed to create citizen", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, citizen)
}
