package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cleancare/backend/internal/auth"
	"github.com/cleancare/backend/internal/models"
)

// Context keys set by AuthMiddleware. Constants so a typo is a compile
// error in handlers, not a silent nil.
const (
	ContextKeySubjectID = "subject_id"
	ContextKeyKind      = "kind"
	ContextKeyRole      = "role"
)

// AuthMiddleware validates the bearer token and stashes its claims in
// the gin context. Invalid or missing tokens abort with 401 before any
// handler runs.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeySubjectID, claims.SubjectID)
		c.Set(ContextKeyKind, claims.Kind)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireStaff gates a route group to staff tokens. The token only
// proves identity; what the staff member may actually see is always
// decided downstream by the scope resolver.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetKind(c) != auth.KindStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "staff access required",
			})
			return
		}
		c.Next()
	}
}

// RequireCitizen gates a route group to citizen tokens.
func RequireCitizen() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetKind(c) != auth.KindCitizen {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "citizen access required",
			})
			return
		}
		c.Next()
	}
}

// GetSubjectID returns the authenticated subject, or uuid.Nil when the
// middleware did not run — a zero value that fails every lookup
// downstream instead of leaking access.
func GetSubjectID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeySubjectID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetKind(c *gin.Context) string {
	val, exists := c.Get(ContextKeyKind)
	if !exists {
		return ""
	}
	kind, ok := val.(string)
	if !ok {
		return ""
	}
	return kind
}

func GetRole(c *gin.Context) models.Role {
	val, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	role, ok := val.(models.Role)
	if !ok {
		return ""
	}
	return role
}
