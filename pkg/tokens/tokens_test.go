package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "todo-timeline-api"
	testAudience = "todo-timeline-frontend"
)

var testSecret = []byte("test-signing-secret")

func mintTestToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := AccessClaims{
		UserID:   "42",
		Email:    "user@example.com",
		Name:     "Test User",
		Provider: "Google",
	}
	token, err := NewAccessToken(claims, testSecret, testIssuer, testAudience, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return token
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).UTC()
	token := mintTestToken(t, exp)

	claims, err := AccessClaimsFromToken(token, testSecret, testIssuer, testAudience)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "Test User", claims.Name)
	assert.Equal(t, "Google", claims.Provider)
	assert.Equal(t, "42", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestAccessToken_WrongKeyFails(t *testing.T) {
	t.Parallel()

	token := mintTestToken(t, time.Now().Add(time.Hour))

	_, err := AccessClaimsFromToken(token, []byte("a-different-secret"), testIssuer, testAudience)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestAccessToken_ExpiredFails(t *testing.T) {
	t.Parallel()

	token := mintTestToken(t, time.Now().Add(-time.Minute))

	_, err := AccessClaimsFromToken(token, testSecret, testIssuer, testAudience)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessToken_IssuerAudienceEnforced(t *testing.T) {
	t.Parallel()

	token := mintTestToken(t, time.Now().Add(time.Hour))

	_, err := AccessClaimsFromToken(token, testSecret, "another-issuer", testAudience)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = AccessClaimsFromToken(token, testSecret, testIssuer, "another-audience")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
}

func TestNewOpaqueToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := NewOpaqueToken()
	require.NoError(t, err)
	b, err := NewOpaqueToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, Sha256Hex(a), Sha256Hex(b))
}
