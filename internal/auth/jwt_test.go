package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolroute/coolroute/internal/auth"
)

func newService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key-for-tests-only",
		Issuer:     "https://api.coolroute.example",
		Audience:   "coolroute-api",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := newService()

	token, expiresAt, err := service.GenerateAccessToken("map-frontend")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.AccessTokenExpiry), expiresAt, time.Minute)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "map-frontend", claims.ClientID)
	assert.Equal(t, "map-frontend", claims.Subject)
	assert.Equal(t, "https://api.coolroute.example", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	token, _, err := newService().GenerateAccessToken("map-frontend")
	require.NoError(t, err)

	other := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "a-different-signing-key",
		Issuer:     "https://api.coolroute.example",
		Audience:   "coolroute-api",
	})

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_RejectsWrongAudience(t *testing.T) {
	issued := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key-for-tests-only",
		Issuer:     "https://api.coolroute.example",
		Audience:   "some-other-api",
	})
	token, _, err := issued.GenerateAccessToken("map-frontend")
	require.NoError(t, err)

	_, err = newService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	// Sign an already-expired token with the service's key and algorithm.
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://api.coolroute.example",
			Subject:   "map-frontend",
			Audience:  jwt.ClaimStrings{"coolroute-api"},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		ClientID: "map-frontend",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-signing-key-for-tests-only"))
	require.NoError(t, err)

	_, err = newService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	_, err := newService().ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_RejectsUnsignedToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:   "https://api.coolroute.example",
		Audience: jwt.ClaimStrings{"coolroute-api"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}
