// Package session identifies a browser across requests and holds the
// authorization token the backend issued to it.
package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

const (
	// CookieName carries the session id.
	CookieName = "subtrack_session"
	// TokenCookieName carries the backend authorization token.
	TokenCookieName = "subtrack_token"

	// DefaultTokenLifetime applies to tokens without a readable expiry.
	DefaultTokenLifetime = 7 * 24 * time.Hour

	sessionLifetime = 30 * 24 * time.Hour
	contextKey      = "subtrack_session_id"
)

// ErrTokenExpired is returned when a token is already past its expiry.
var ErrTokenExpired = errors.New("session: token expired")

var tokenAlgorithms = []gojose.SignatureAlgorithm{
	gojose.RS256, gojose.RS384, gojose.RS512,
	gojose.PS256, gojose.PS384, gojose.PS512,
	gojose.ES256, gojose.ES384, gojose.ES512,
	gojose.HS256, gojose.HS384, gojose.HS512,
	gojose.EdDSA,
}

// Middleware assigns every browser a session id cookie and exposes it via ID.
func Middleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			setCookie(c, CookieName, id, int(sessionLifetime/time.Second), secure)
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// ID returns the session id set by Middleware.
func ID(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Token returns the authorization token for this browser. The cookie wins over
// a bearer header sent by API clients.
func Token(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookieName); err == nil && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// StoreToken writes the token cookie with a lifetime matching the token.
func StoreToken(c *gin.Context, token string, secure bool, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: empty token")
	}
	expiry := TokenExpiry(token, now)
	if !expiry.After(now) {
		return ErrTokenExpired
	}
	setCookie(c, TokenCookieName, token, int(expiry.Sub(now)/time.Second), secure)
	return nil
}

// ClearToken removes the token cookie.
func ClearToken(c *gin.Context, secure bool) {
	setCookie(c, TokenCookieName, "", -1, secure)
}

// TokenExpiry reads exp from a JWT without verifying its signature. The
// backend verifies tokens; this only sizes the cookie. Opaque tokens and JWTs
// without exp get DefaultTokenLifetime.
func TokenExpiry(token string, now time.Time) time.Time {
	parsed, err := gojwt.ParseSigned(token, tokenAlgorithms)
	if err != nil {
		return now.Add(DefaultTokenLifetime)
	}
	var claims gojwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil || claims.Expiry == nil {
		return now.Add(DefaultTokenLifetime)
	}
	return claims.Expiry.Time()
}

func setCookie(c *gin.Context, name, value string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}
