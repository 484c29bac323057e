package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	// Arrange
	m := NewTokenManager("test-secret", time.Hour)

	// Act
	token, err := m.Generate("user-42", "+5215512345678")
	require.NoError(t, err)
	claims, err := m.Validate(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID())
	assert.Equal(t, "+5215512345678", claims.PhoneE164)
}

func TestTokenManager_Rejections(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)
	expired := NewTokenManager("test-secret", time.Hour)

	foreign, err := other.Generate("user-1", "")
	require.NoError(t, err)

	// Süresi dolmuş token elle üretilir
	past := time.Now().Add(-2 * time.Hour)
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	}).SignedString(expired.secret)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{PhoneE164: "+1"}).SignedString(m.secret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "farklı secret", token: foreign},
		{name: "süresi dolmuş", token: stale},
		{name: "bozuk token", token: "not-a-jwt"},
		{name: "sub yok", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestTokenManager_ExpiredIsWrapped(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	past := time.Now().Add(-time.Hour)
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(past)},
	}).SignedString(m.secret)
	require.NoError(t, err)

	_, err = m.Validate(stale)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestTokenManager_GenerateRequiresSubject(t *testing.T) {
	m := NewTokenManager("", 0)

	_, err := m.Generate("", "+1")
	assert.ErrorIs(t, err, ErrMissingSubject)
	assert.Equal(t, 24*time.Hour, m.ttl)
	assert.Equal(t, []byte(devSecret), m.secret)
}
