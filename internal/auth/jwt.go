package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cleancare/backend/internal/models"
)

// Subject kinds carried in a token. Staff and citizens share the same
// token format but hit disjoint route groups.
const (
	KindStaff   = "staff"
	KindCitizen = "citizen"
)

// Claims is the payload inside every JWT. For staff tokens Role is the
// staff tier; the assignment pointers themselves are NOT in the token
// — scope is always resolved from the live assignment store, so a
// revocation takes effect without waiting for token expiry.
type Claims struct {
	SubjectID uuid.UUID   `json:"subject_id"`
	Kind      string      `json:"kind"`
	Role      models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed HS256 token for a staff member or
// citizen.
func GenerateToken(subjectID uuid.UUID, kind string, role models.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		SubjectID: subjectID,
		Kind:      kind,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "cleancare",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string: signature, expiry, and that the
// signing method is HMAC (rejects algorithm-confusion payloads).
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
