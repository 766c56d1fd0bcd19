package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()

	signed, err := NewAccessToken(userID, sessionID, "secret", time.Hour)
	require.NoError(t, err)

	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, sessionID, claims.AuthSessionID)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	signed, err := NewAccessToken(uuid.New(), uuid.New(), "secret", time.Hour)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(signed, &CustomClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}

func TestVerificationTokenRoundTrip(t *testing.T) {
	signed, err := NewVerificationToken("ana@example.com", "secret", time.Hour)
	require.NoError(t, err)

	email, err := ParseVerificationToken(signed, "secret")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", email)
}

func TestVerificationTokenRejectsAccessToken(t *testing.T) {
	// An access token must never pass as a verification link.
	signed, err := NewAccessToken(uuid.New(), uuid.New(), "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseVerificationToken(signed, "secret")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestVerificationTokenExpired(t *testing.T) {
	signed, err := NewVerificationToken("ana@example.com", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseVerificationToken(signed, "secret")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
