package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/pkg/config"
	appErrors "github.com/noah-isme/certify-api/pkg/errors"
)

type mockUserRepo struct {
	user             *models.User
	findErr          error
	lastLoginUpdated bool
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "jwt-secret", Expiration: time.Hour, Issuer: "certify-api"}
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "admin@academia.example",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockUserRepo{user: activeUser(t)}
	svc := NewAuthService(repo, testJWTConfig(), zap.NewNop())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@academia.example", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockUserRepo{user: activeUser(t)}
	svc := NewAuthService(repo, testJWTConfig(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@academia.example", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := &mockUserRepo{findErr: sql.ErrNoRows}
	svc := NewAuthService(repo, testJWTConfig(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@academia.example", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	user := activeUser(t)
	user.Active = false
	svc := NewAuthService(&mockUserRepo{user: user}, testJWTConfig(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	repo := &mockUserRepo{user: activeUser(t)}
	svc := NewAuthService(repo, testJWTConfig(), zap.NewNop())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@academia.example", Password: "password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, testJWTConfig(), zap.NewNop())

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := &mockUserRepo{user: activeUser(t)}
	issuerSvc := NewAuthService(repo, config.JWTConfig{Secret: "other-secret", Expiration: time.Hour}, zap.NewNop())

	res, err := issuerSvc.Login(context.Background(), models.LoginRequest{Email: "admin@academia.example", Password: "password"})
	require.NoError(t, err)

	svc := NewAuthService(repo, testJWTConfig(), zap.NewNop())
	_, err = svc.ValidateToken(res.AccessToken)
	assert.Error(t, err)
}
