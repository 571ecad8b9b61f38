package jwt

import (
	"testing"
	"time"

	"buzzline/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 15*time.Minute, 30*24*time.Hour)

	user := entity.User{Id: "u1", Email: "alice@example.com", Username: "alice"}
	token, err := m.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserId)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 15*time.Minute, time.Hour)
	verifier := NewJWTManager("secret-b", 15*time.Minute, time.Hour)

	token, err := issuer.GenerateAccessToken(entity.User{Id: "u1"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(entity.User{Id: "u1"})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewJWTManager("secret", 15*time.Minute, time.Hour)

	_, err := m.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := NewJWTManager("secret", 15*time.Minute, time.Hour)

	first, err := m.GenerateRefreshToken()
	require.NoError(t, err)
	second, err := m.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
