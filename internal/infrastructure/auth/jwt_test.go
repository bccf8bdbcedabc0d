package auth

import (
	"testing"
	"time"

	"github.com/ecom/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		Secret: "test-secret-key-for-testing-only",
		Issuer: "ecom-identity",
	}
}

func mintToken(t *testing.T, cfg config.AuthConfig, mutate func(*Claims)) string {
	t.Helper()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   "shopper",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
		UserID: uuid.New().String(),
		Email:  "shopper@example.com",
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	cfg := testConfig()
	verifier := NewTokenVerifier(cfg)

	userID := uuid.New()
	signed := mintToken(t, cfg, func(c *Claims) { c.UserID = userID.String() })

	claims, err := verifier.Verify(signed)
	require.NoError(t, err)

	parsed, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
	assert.Equal(t, "shopper@example.com", claims.Email)
}

func TestVerifyExpiredToken(t *testing.T) {
	cfg := testConfig()
	verifier := NewTokenVerifier(cfg)

	signed := mintToken(t, cfg, func(c *Claims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	})

	_, err := verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	cfg := testConfig()
	signed := mintToken(t, cfg, nil)

	other := cfg
	other.Secret = "a-completely-different-secret"
	verifier := NewTokenVerifier(other)

	_, err := verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	cfg := testConfig()
	verifier := NewTokenVerifier(cfg)

	signed := mintToken(t, cfg, func(c *Claims) { c.Issuer = "someone-else" })

	_, err := verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingUserID(t *testing.T) {
	cfg := testConfig()
	verifier := NewTokenVerifier(cfg)

	signed := mintToken(t, cfg, func(c *Claims) { c.UserID = "" })

	_, err := verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestVerifyGarbageToken(t *testing.T) {
	verifier := NewTokenVerifier(testConfig())

	_, err := verifier.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
