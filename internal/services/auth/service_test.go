package auth

import (
	"testing"

	"finwell/internal/models"
	"finwell/internal/repositories/repotest"
	"finwell/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (Service, *repotest.UserRepo, *models.User) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	users := repotest.NewUserRepo()
	hashed, err := bcrypt.GenerateFromPassword([]byte("Sup3r$ecret"), bcrypt.MinCost)
	require.NoError(t, err)
	orgID := uint(1)
	u := &models.User{
		Email:          "hr@acme.example",
		Password:       string(hashed),
		Name:           "HR Person",
		Role:           models.RoleHR,
		OrganizationID: &orgID,
		TokenVersion:   1,
	}
	require.NoError(t, users.Create(u))
	return NewService(users, nil), users, u
}

func TestService_Login(t *testing.T) {
	svc, _, u := newTestService(t)

	user, access, refresh, err := svc.Login(u.Email, "Sup3r$ecret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// Claims carry the org scope the handlers authorize against.
	_, claims, err := utils.ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleHR, claims.Role)
	require.NotNil(t, claims.OrganizationID)
	assert.Equal(t, uint(1), *claims.OrganizationID)
	assert.Contains(t, claims.Permissions, models.PermissionAllocateCredits)
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	svc, _, u := newTestService(t)

	_, _, _, err := svc.Login(u.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = svc.Login("nobody@acme.example", "Sup3r$ecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RefreshTokens(t *testing.T) {
	svc, _, u := newTestService(t)

	_, _, refresh, err := svc.Login(u.Email, "Sup3r$ecret")
	require.NoError(t, err)

	access, newRefresh, err := svc.RefreshTokens(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, newRefresh)
}

func TestService_Logout_InvalidatesRefresh(t *testing.T) {
	svc, users, u := newTestService(t)

	_, _, refresh, err := svc.Login(u.Email, "Sup3r$ecret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(u.ID))

	version, err := users.GetTokenVersion(u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, _, err = svc.RefreshTokens(refresh)
	assert.Error(t, err)
}

func TestService_ChangePassword(t *testing.T) {
	svc, _, u := newTestService(t)

	t.Run("wrong old password", func(t *testing.T) {
		err := svc.ChangePassword(u.ID, "nope", "N3w$ecret!")
		assert.Error(t, err)
	})

	t.Run("weak new password", func(t *testing.T) {
		err := svc.ChangePassword(u.ID, "Sup3r$ecret", "short")
		assert.Error(t, err)
	})

	t.Run("success rotates credentials", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(u.ID, "Sup3r$ecret", "N3w$ecret!"))

		_, _, _, err := svc.Login(u.Email, "Sup3r$ecret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, _, err = svc.Login(u.Email, "N3w$ecret!")
		assert.NoError(t, err)
	})
}
