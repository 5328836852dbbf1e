package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/adapter/backend"
	domaingmail "github.com/smallbiznis/subtrack/internal/domain/gmail"
	gmailsvc "github.com/smallbiznis/subtrack/internal/service/gmail"
	"github.com/smallbiznis/subtrack/internal/session"
)

// MailboxBackend is the part of the backend client the mailbox proxies use.
type MailboxBackend interface {
	ScanGmail(ctx context.Context, token string) (map[string]any, error)
	DisconnectGmail(ctx context.Context, token string) (map[string]any, error)
}

// GmailHandler serves the mailbox connection flow.
type GmailHandler struct {
	Initiator *gmailsvc.Initiator
	Callbacks *gmailsvc.CallbackHandler
	Backend   MailboxBackend
	logger    *zap.Logger
}

// NewGmailHandler creates the handler set.
func NewGmailHandler(initiator *gmailsvc.Initiator, callbacks *gmailsvc.CallbackHandler, mailbox MailboxBackend, logger *zap.Logger) *GmailHandler {
	return &GmailHandler{Initiator: initiator, Callbacks: callbacks, Backend: mailbox, logger: logger}
}

// Connect starts a mailbox connection and redirects the browser.
func (h *GmailHandler) Connect(c *gin.Context) {
	outcome, err := h.Initiator.Initiate(c.Request.Context(), session.ID(c))
	switch {
	case errors.Is(err, domaingmail.ErrConnectionInProgress):
		renderStatus(c, http.StatusConflict, statusPage{
			Status:  domaingmail.StatusProcessing,
			Message: "A Gmail connection is already in progress.",
			BackURL: gmailsvc.SettingsPath,
		}, nil)
		return
	case errors.Is(err, domaingmail.ErrClientNotConfigured):
		renderStatus(c, http.StatusServiceUnavailable, statusPage{
			Status:  domaingmail.StatusError,
			Title:   "Gmail not configured",
			Message: "Gmail cannot be connected until Google OAuth credentials are configured.",
			Notices: outcome.Notices,
			BackURL: gmailsvc.SettingsPath,
		}, nil)
		return
	case err != nil:
		h.log().Error("gmail connect failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "server_error", "Failed to start Gmail connection.")
		return
	}

	c.Redirect(http.StatusFound, outcome.Navigation.Path)
}

// Callback receives the provider redirect and renders the result page.
func (h *GmailHandler) Callback(c *gin.Context) {
	caller := gmailsvc.Caller{SessionID: session.ID(c), Token: session.Token(c)}
	mount := h.Callbacks.Mount(caller, gmailsvc.ParamsFromQuery(c.Request.URL.Query()))
	outcome := mount.Resolve(c.Request.Context())
	h.logCallback(outcome)

	nav := outcome.Navigation
	renderStatus(c, http.StatusOK, statusPage{
		Status:  outcome.Result.Status,
		Message: outcome.Result.Message,
		Notices: outcome.Notices,
	}, &nav)
}

func (h *GmailHandler) logCallback(outcome *gmailsvc.CallbackOutcome) {
	if outcome.Err == nil {
		return
	}
	fields := []zap.Field{zap.String("branch", outcome.Branch), zap.Error(outcome.Err)}
	switch {
	case errors.Is(outcome.Err, domaingmail.ErrBackendUnavailable):
		h.log().Warn("gmail callback degraded", fields...)
	case errors.Is(outcome.Err, domaingmail.ErrInvalidCallback),
		errors.Is(outcome.Err, domaingmail.ErrAuthorizationDenied):
		h.log().Info("gmail callback rejected", fields...)
	default:
		h.log().Error("gmail callback failed", fields...)
	}
}

// Scan asks the backend to scan the linked mailbox.
func (h *GmailHandler) Scan(c *gin.Context) {
	h.proxy(c, "scan", h.Backend.ScanGmail)
}

// Disconnect unlinks the mailbox on the backend.
func (h *GmailHandler) Disconnect(c *gin.Context) {
	h.proxy(c, "disconnect", h.Backend.DisconnectGmail)
}

func (h *GmailHandler) proxy(c *gin.Context, name string, call func(context.Context, string) (map[string]any, error)) {
	token := session.Token(c)
	if token == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized", "Sign in before managing Gmail.")
		return
	}
	payload, err := call(c.Request.Context(), token)
	if err != nil {
		respondBackendError(c, h.log(), "gmail "+name, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// respondBackendError passes 401 and 404 through and reports everything else as a gateway error.
func respondBackendError(c *gin.Context, logger *zap.Logger, what string, err error) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			respondError(c, http.StatusUnauthorized, "unauthorized", "Session expired. Please sign in again.")
			return
		case http.StatusNotFound:
			respondError(c, http.StatusNotFound, "not_found", "Resource not found.")
			return
		}
	}
	logger.Warn(what+" failed", zap.Error(err))
	respondError(c, http.StatusBadGateway, "backend_unavailable", "Backend request failed.")
}

func (h *GmailHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}
