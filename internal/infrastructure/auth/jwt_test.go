package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", "vulntrack", 60)

	token, expiresIn, err := s.Generate(" Alice@Acme.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@acme.com", claims.Email)
	assert.Equal(t, "alice@acme.com", claims.Subject)
	assert.Equal(t, "vulntrack", claims.Issuer)
}

func TestJWTService_Rejects(t *testing.T) {
	s := NewJWTService("secret", "vulntrack", 60)

	other := NewJWTService("other-secret", "vulntrack", 60)
	forged, _, err := other.Generate("alice@acme.com")
	require.NoError(t, err)

	wrongIssuer := NewJWTService("secret", "someone-else", 60)
	foreign, _, err := wrongIssuer.Generate("alice@acme.com")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "alice@acme.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "vulntrack",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Email:            "alice@acme.com",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "vulntrack"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": forged,
		"wrong issuer": foreign,
		"expired":      expired,
		"alg none":     none,
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_GenerateRequiresEmail(t *testing.T) {
	_, _, err := NewJWTService("secret", "", 60).Generate("  ")
	assert.Error(t, err)
}
