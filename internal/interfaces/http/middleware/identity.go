package middleware

import (
	"net/http"
	"strings"

	"github.com/ecom/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity context keys and header names
const (
	IdentityClaimsKey  = "identity_claims"
	IdentityUserIDKey  = "identity_user_id"
	IdentitySessionKey = "identity_session_key"
	SessionKeyHeader   = "X-Session-Key"
	SessionCookieName  = "ecom_session"
	AuthHeaderKey      = "Authorization"
	BearerPrefix       = "Bearer "
)

// IdentityConfig holds configuration for the identity middleware
type IdentityConfig struct {
	// Verifier validates bearer tokens. Required for authenticated requests.
	Verifier *auth.TokenVerifier
	// CookieMaxAge is the lifetime of the guest session cookie in seconds.
	CookieMaxAge int
	// CookiePath, CookieDomain, CookieSecure configure the session cookie.
	CookiePath   string
	CookieDomain string
	CookieSecure bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// Identity resolves the caller for every request. A valid bearer token
// yields an authenticated user; otherwise a guest session key is taken
// from the X-Session-Key header or the session cookie, minting a new one
// when neither is present. An invalid or expired token is a hard 401 so
// callers never silently fall back to a guest cart.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, BearerPrefix) {
				rejectUnauthenticated(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
			claims, err := cfg.Verifier.Verify(tokenString)
			if err != nil {
				rejectUnauthenticated(c, cfg, err, "Token verification failed")
				return
			}

			c.Set(IdentityClaimsKey, claims)
			c.Set(IdentityUserIDKey, claims.UserID)
			c.Next()
			return
		}

		// Guest traffic: header wins over cookie so API clients can carry
		// their own key without cookie jars
		sessionKey := c.GetHeader(SessionKeyHeader)
		if sessionKey == "" {
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				sessionKey = cookie
			}
		}
		if sessionKey == "" || !isValidSessionKey(sessionKey) {
			sessionKey = uuid.NewString()
			c.SetCookie(SessionCookieName, sessionKey, cfg.CookieMaxAge, cfg.CookiePath, cfg.CookieDomain, cfg.CookieSecure, true)
		}

		c.Set(IdentitySessionKey, sessionKey)
		c.Next()
	}
}

// RequireUser aborts with 401 unless the identity middleware resolved an
// authenticated user. Place it after Identity on user-only routes.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(IdentityUserIDKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}
		c.Next()
	}
}

// rejectUnauthenticated maps verification errors onto 401 responses
func rejectUnauthenticated(c *gin.Context, cfg IdentityConfig, err error, message string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	errorCode := "UNAUTHORIZED"
	errorMessage := "Authentication required"

	switch err {
	case auth.ErrExpiredToken:
		errorCode = "TOKEN_EXPIRED"
		errorMessage = "Token has expired"
	case auth.ErrInvalidToken:
		errorCode = "INVALID_TOKEN"
		errorMessage = "Invalid token"
	case auth.ErrTokenNotYetValid:
		errorCode = "TOKEN_NOT_VALID"
		errorMessage = "Token is not yet valid"
	case auth.ErrInvalidClaims, auth.ErrMissingUserID:
		errorCode = "INVALID_TOKEN"
		errorMessage = "Invalid token claims"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    errorCode,
			"message": errorMessage,
		},
	})
}

// GetClaims retrieves verified token claims from gin.Context
func GetClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(IdentityClaimsKey); exists {
		if tokenClaims, ok := claims.(*auth.Claims); ok {
			return tokenClaims
		}
	}
	return nil
}

// GetUserUUID returns the authenticated user's ID, or nil for guests
func GetUserUUID(c *gin.Context) *uuid.UUID {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	id, err := claims.GetUserUUID()
	if err != nil {
		return nil
	}
	return &id
}

// GetSessionKeyFromContext returns the guest session key, or "" for
// authenticated users
func GetSessionKeyFromContext(c *gin.Context) string {
	if sessionKey, exists := c.Get(IdentitySessionKey); exists {
		if key, ok := sessionKey.(string); ok {
			return key
		}
	}
	return ""
}
