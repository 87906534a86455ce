package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-theatre/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", 32))

func newTestJWT(t *testing.T) *JWTService {
	svc, err := NewJWTServiceWithConfig(TokenConfig{Secret: testSecret, Issuer: "theatre-test", ExpiresIn: time.Hour})
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTServiceWithConfig(TokenConfig{Secret: []byte("short")})
	assert.Error(t, err)
}

func TestNewJWTServiceGeneratesSecretWhenEmpty(t *testing.T) {
	svc, err := NewJWTService(&config.Config{JWTIssuer: "x"})
	require.NoError(t, err)
	cfg := svc.GetConfig()
	assert.GreaterOrEqual(t, len(cfg.Secret), minSecretLength)
	assert.Equal(t, defaultTokenTTL, cfg.ExpiresIn)
}

func TestGenerateAndExtractClaims(t *testing.T) {
	svc := newTestJWT(t)

	token, expiry, err := svc.GenerateToken("alice", 7, "Admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	claims, err := svc.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "Admin", claims.Role)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, expiry.Unix(), claims.Exp)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	svc := newTestJWT(t)
	other, err := NewJWTServiceWithConfig(TokenConfig{Secret: []byte(strings.Repeat("o", 32)), Issuer: "theatre-test"})
	require.NoError(t, err)

	token, _, err := other.GenerateToken("bob", 1, "User")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	svc := newTestJWT(t)
	other, err := NewJWTServiceWithConfig(TokenConfig{Secret: testSecret, Issuer: "someone-else"})
	require.NoError(t, err)

	token, _, err := other.GenerateToken("bob", 1, "User")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestJWT(t)
	claims := jwt.MapClaims{
		"username": "bob",
		"type":     "access",
		"iss":      "theatre-test",
		"exp":      time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	svc := newTestJWT(t)
	claims := jwt.MapClaims{"username": "bob", "iss": "theatre-test", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestExtractClaimsRejectsNonAccessToken(t *testing.T) {
	svc := newTestJWT(t)
	claims := jwt.MapClaims{
		"username": "bob",
		"type":     "refresh",
		"iss":      "theatre-test",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = svc.ExtractClaims(token)
	assert.Error(t, err)
}
