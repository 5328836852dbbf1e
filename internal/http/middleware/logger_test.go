package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smallbiznis/subtrack/internal/session"
)

func TestRequestLoggerRedactsAuthorizationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(session.Middleware(false))
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/gmail-callback", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/gmail-callback?code=secret-code&state=xyz&scope=email", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	require.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.NotEmpty(t, fields["session_id"])
	require.NotContains(t, fields["path"], "secret-code")
	require.Contains(t, fields["path"], "scope=email")
}

func TestRequestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zap.WarnLevel, entries[0].Level)
	require.Equal(t, zap.ErrorLevel, entries[1].Level)
}

func TestRedactQuery(t *testing.T) {
	require.Empty(t, redactQuery(url.Values{}))
	require.Equal(t, "token=REDACTED", redactQuery(url.Values{"token": {"abc"}}))
}
