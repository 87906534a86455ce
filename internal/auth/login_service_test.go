package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/database/repo/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoginService(t *testing.T) (*LoginService, *accounts.Repository) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	repo := accounts.NewRepository(db)
	return NewLoginService(repo, newTestJWT(t)), repo
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestLoginService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " carol ", "carol@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret1", user.Password)

	result, err := svc.Login(ctx, "carol", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)

	claims, err := svc.jwtService.ExtractClaims(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestLoginService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "dave", "", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "dave", "", "secret2")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestLoginService(t)
	_, err := svc.Register(context.Background(), "erin", "", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestLoginService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "frank", "", "secret1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "frank", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDefaultAdminAndResetPassword(t *testing.T) {
	svc, repo := newTestLoginService(t)
	ctx := context.Background()

	password, err := repo.CreateDefaultAdminUser(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, password)

	again, err := repo.CreateDefaultAdminUser(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	result, err := svc.Login(ctx, "admin", password)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, result.User.Role)

	require.NoError(t, svc.ResetPassword(ctx, "admin", "new-password"))
	_, err = svc.Login(ctx, "admin", password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "admin", "new-password")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "ghost", "new-password"), accounts.ErrUserNotFound)
}
