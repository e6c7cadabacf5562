package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cleancare/backend/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	staffID := uuid.New()

	token, err := GenerateToken(staffID, KindStaff, models.RoleZoneAdmin, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, staffID, claims.SubjectID)
	require.Equal(t, KindStaff, claims.Kind)
	require.Equal(t, models.RoleZoneAdmin, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(uuid.New(), KindCitizen, "", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(uuid.New(), KindStaff, models.RoleWardAdmin, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	require.Error(t, err)
}
