package service

import (
	"testing"
	"time"

	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"
	"quizdesk_backend/internal/repository/inmem"
	"quizdesk_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService() *AuthService {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	return NewAuthService(inmem.NewUserRepository(inmem.NewDB()), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService()

	user, err := svc.Register(RegisterRequest{Name: " Grace ", Email: "Grace@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "Grace", user.Name)
	assert.Equal(t, model.Student, user.Role)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = svc.Register(RegisterRequest{Name: "Dup", Email: "grace@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	result, err := svc.Login("GRACE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := util.ParseJWT(result.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	_, err = svc.Login("grace@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = svc.Login("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	got, err := svc.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.GetUser(999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestLoginDisabledUser(t *testing.T) {
	svc := newAuthService()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, svc.UserRepo.Create(&model.User{
		Name: "Old", Email: "old@example.com", Password: string(hash), Role: model.Teacher, Disabled: true,
	}))

	_, err = svc.Login("old@example.com", "secret1")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestEnsureUser(t *testing.T) {
	svc := newAuthService()
	req := RegisterRequest{Name: "Tess", Email: "tess@example.com", Password: "secret1", Role: model.Teacher}

	user, created, err := svc.EnsureUser(req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.Teacher, user.Role)

	again, created, err := svc.EnsureUser(req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}
