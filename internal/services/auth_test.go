package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	hash, err := svc.HashPassword("p@ssw0rd")
	require.NoError(t, err)
	assert.NotEqual(t, "p@ssw0rd", hash)

	assert.NoError(t, svc.CheckPasswordHash("p@ssw0rd", hash))
	assert.Error(t, svc.CheckPasswordHash("wrong", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	token, err := svc.GenerateToken("u1")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService("secret-a", time.Hour)
	verifier := NewAuthService("secret-b", time.Hour)

	token, err := issuer.GenerateToken("u1")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService("secret", -time.Minute)

	token, err := svc.GenerateToken("u1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	token, err := svc.GenerateToken("u1")
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(token)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestRefreshTokenRejectsInvalid(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	_, err := svc.RefreshToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
