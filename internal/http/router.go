package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/subtrack/internal/http/middleware"
	"github.com/smallbiznis/subtrack/internal/metrics"
	"github.com/smallbiznis/subtrack/internal/middleware"
	"github.com/smallbiznis/subtrack/internal/session"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Gmail     *handler.GmailHandler
	Dashboard *handler.DashboardHandler
	Session   *handler.SessionHandler
}

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, h Handlers, m *metrics.Metrics, rateLimiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(session.Middleware(cfg.CookieSecure))
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.GET("/add-gmail/connect", h.Gmail.Connect)
	r.GET("/gmail-callback", h.Gmail.Callback)

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.Dashboard.Dashboard)
		api.GET("/insights", h.Dashboard.Insights)
		api.GET("/calendar", h.Dashboard.Calendar)

		settings := api.Group("/settings")
		{
			settings.GET("/reminders", h.Dashboard.GetReminders)
			settings.PUT("/reminders", h.Dashboard.PutReminders)
		}

		sessions := api.Group("/session")
		{
			sessions.POST("/google", h.Session.GoogleSignIn)
			sessions.DELETE("", h.Session.SignOut)
		}

		gmail := api.Group("/gmail")
		{
			gmail.POST("/scan", h.Gmail.Scan)
			gmail.DELETE("/disconnect", h.Gmail.Disconnect)
		}
	}

	// The dashboard itself is a static build; "/" first checks for a login token.
	attachUIRoutes(r, cfg.UIDistDir, h.Session.Landing)

	return r
}

func attachUIRoutes(r *gin.Engine, distDir string, landing gin.HandlerFunc) {
	indexPath := filepath.Join(distDir, "index.html")
	serveIndex := func(c *gin.Context) {
		if _, err := os.Stat(indexPath); err != nil {
			c.String(http.StatusNotFound, "dashboard build not found")
			return
		}
		c.File(indexPath)
	}

	r.GET("/", landing, serveIndex)

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if isAPIPath(path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Route not found."})
			return
		}

		if filePath, ok := safeJoin(distDir, path); ok {
			if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
				c.File(filePath)
				return
			}
		}

		serveIndex(c)
	})
}

func isAPIPath(path string) bool {
	return path == "/api" ||
		strings.HasPrefix(path, "/api/") ||
		path == "/metrics" ||
		path == "/healthz"
}

func safeJoin(baseDir, requestPath string) (string, bool) {
	trimmed := strings.TrimPrefix(requestPath, "/")
	cleaned := filepath.Clean(trimmed)
	if cleaned == "." {
		return filepath.Join(baseDir, cleaned), true
	}
	if strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return filepath.Join(baseDir, cleaned), true
}
