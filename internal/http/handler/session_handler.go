package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/adapter/backend"
	"github.com/smallbiznis/subtrack/internal/config"
	gmailsvc "github.com/smallbiznis/subtrack/internal/service/gmail"
	"github.com/smallbiznis/subtrack/internal/session"
)

// SignInBackend is the part of the backend client sign-in needs.
type SignInBackend interface {
	GoogleSignIn(ctx context.Context, credential string) (*backend.SignInResponse, error)
}

// SessionHandler manages the authorization token of a browser.
type SessionHandler struct {
	backend SignInBackend
	secure  bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionHandler creates the handler set.
func NewSessionHandler(cfg config.Config, signIn SignInBackend, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{backend: signIn, secure: cfg.CookieSecure, logger: logger, now: time.Now}
}

// Landing stores a token handed over by the backend login redirect
// (/?token=...) and continues to the dashboard. Without a token the next
// handler serves the login page.
func (h *SessionHandler) Landing(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return
	}
	if err := session.StoreToken(c, token, h.secure, h.now()); err != nil {
		h.log().Warn("landing token rejected", zap.Error(err))
		c.Redirect(http.StatusFound, "/?error=invalid_token")
		c.Abort()
		return
	}
	c.Redirect(http.StatusFound, gmailsvc.DashboardPath)
	c.Abort()
}

// GoogleSignIn exchanges a Google credential for a backend token.
func (h *SessionHandler) GoogleSignIn(c *gin.Context) {
	var req struct {
		Credential string `json:"credential" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "credential is required.")
		return
	}

	resp, err := h.backend.GoogleSignIn(c.Request.Context(), req.Credential)
	if err != nil {
		respondBackendError(c, h.log(), "google sign-in", err)
		return
	}
	if err := session.StoreToken(c, resp.Token, h.secure, h.now()); err != nil {
		if errors.Is(err, session.ErrTokenExpired) {
			respondError(c, http.StatusBadGateway, "backend_unavailable", "Backend issued an expired token.")
			return
		}
		respondError(c, http.StatusBadGateway, "backend_unavailable", "Backend issued an unusable token.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": resp.User})
}

// SignOut clears the token cookie.
func (h *SessionHandler) SignOut(c *gin.Context) {
	session.ClearToken(c, h.secure)
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}
