package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
)

func parseGeoPoint(code, zoneID, wardID string) (models.GeoPoint, error) {
	z, err := uuid.Parse(zoneID)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("invalid zone id")
	}
	w, err := uuid.Parse(wardID)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("invalid ward id")
	}
	return models.GeoPoint{CityCorporationCode: code, ZoneID: z, WardID: w}, nil
}

// respondGeoError translates tree errors: an inconsistent chain is the
// client's fault (422), drifted references are a server-side conflict
// (409), anything else is a 500.
func respondGeoError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, geo.ErrInvalidGeography):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, geo.ErrReferentialIntegrity):
		logger.Error("geography referential integrity violation", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("geography check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
