package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory_admin/internal/models"
)

func signedToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := Claims{Role: role}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	token := signedToken(t, "admin", time.Now().Add(time.Hour))

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseClaims("opaque-token")
	assert.ErrorIs(t, err, ErrNotJWT)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, Expired(signedToken(t, "admin", now.Add(-time.Minute)), now))
	assert.False(t, Expired(signedToken(t, "admin", now.Add(time.Minute)), now))
	assert.False(t, Expired(signedToken(t, "admin", time.Time{}), now), "no exp claim")
	assert.False(t, Expired("abc", now), "opaque tokens are not judged")
}

func TestRoleOf(t *testing.T) {
	token := signedToken(t, "driver", time.Time{})

	assert.Equal(t, RoleSuperAdmin, RoleOf(models.User{"role": "Super_Admin"}, token))
	assert.Equal(t, RoleDriver, RoleOf(models.User{"id": 7}, token))
	assert.Equal(t, "", RoleOf(nil, "abc"))
}

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		role  string
		check func(t *testing.T, c models.Capabilities)
	}{
		{
			role: "superadmin",
			check: func(t *testing.T, c models.Capabilities) {
				assert.True(t, c.CanManageUsers)
				assert.True(t, c.CanDeleteSuppliers)
				assert.True(t, c.CanManageDrivers)
			},
		},
		{
			role: "admin",
			check: func(t *testing.T, c models.Capabilities) {
				assert.False(t, c.CanManageUsers)
				assert.False(t, c.CanDeleteSuppliers)
				assert.True(t, c.CanManageDrivers)
				assert.True(t, c.CanDelete)
			},
		},
		{
			role: "driver",
			check: func(t *testing.T, c models.Capabilities) {
				assert.True(t, c.CanViewDeliveries)
				assert.True(t, c.CanUpdateDeliveries)
				assert.False(t, c.CanManageCatalog)
				assert.False(t, c.CanDelete)
			},
		},
		{
			role: "guest",
			check: func(t *testing.T, c models.Capabilities) {
				assert.Equal(t, models.Capabilities{}, c)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			tc.check(t, CapabilitiesFor(tc.role))
		})
	}
}
