// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClockZinc/STAR-ENGINE/internal/config"
	"github.com/ClockZinc/STAR-ENGINE/internal/models"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testAuthConfig())

	resp, err := svc.Register(&RegisterRequest{
		Nickname: "小王",
		Email:    "wang@star-engine.test",
		Password: "strong-password-1",
		Role:     models.RoleLawyer,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleLawyer, resp.User.Role)

	// Duplicate email.
	_, err = svc.Register(&RegisterRequest{
		Nickname: "小王二号",
		Email:    "wang@star-engine.test",
		Password: "strong-password-2",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	login, err := svc.Login(&LoginRequest{
		Email:    "wang@star-engine.test",
		Password: "strong-password-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	require.NotNil(t, login.User.LastLoginAt)

	_, err = svc.Login(&LoginRequest{
		Email:    "wang@star-engine.test",
		Password: "wrong-password",
	})
	require.Error(t, err)
}

func TestRegisterDefaultsToVolunteer(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testAuthConfig())

	resp, err := svc.Register(&RegisterRequest{
		Nickname: "小李",
		Email:    "li@star-engine.test",
		Password: "strong-password-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleVolunteer, resp.User.Role)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testAuthConfig())

	resp, err := svc.Register(&RegisterRequest{
		Nickname: "小赵",
		Email:    "zhao@star-engine.test",
		Password: "strong-password-1",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)

	_, err = svc.RefreshToken("not-a-token")
	require.Error(t, err)
}
