package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/subtrack/internal/config"
)

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(10)

	r := gin.New()
	r.Use(limiter.Handler())
	r.GET("/api/dashboard", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "7", second.Header().Get("Retry-After"))
	require.Contains(t, second.Body.String(), "rate_limited")

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestNilRateLimiterPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(0)
	require.Nil(t, limiter)

	r := gin.New()
	r.Use(limiter.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		CORSAllowedOrigins:   []string{"http://localhost:5173"},
		CORSAllowedMethods:   []string{"GET", "PUT"},
		CORSAllowedHeaders:   []string{"Content-Type"},
		CORSAllowCredentials: true,
	}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/api/dashboard", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "GET, PUT", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
