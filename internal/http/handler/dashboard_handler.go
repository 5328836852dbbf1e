package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/domain"
	domaingmail "github.com/smallbiznis/subtrack/internal/domain/gmail"
	"github.com/smallbiznis/subtrack/internal/repository"
	"github.com/smallbiznis/subtrack/internal/service"
	"github.com/smallbiznis/subtrack/internal/session"
)

// DashboardHandler serves the dashboard, insights, calendar and settings data.
type DashboardHandler struct {
	dashboard *service.DashboardService
	Settings  repository.SettingsStore
	logger    *zap.Logger
}

// NewDashboardHandler creates the handler set.
func NewDashboardHandler(dashboard *service.DashboardService, settings repository.SettingsStore, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, Settings: settings, logger: logger}
}

// Dashboard returns subscriptions, summary and sync status. The query
// parameters set by the backend after a brokered connection become notices.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	dash := h.dashboard.Load(c.Request.Context(), session.Token(c))
	c.JSON(http.StatusOK, gin.H{
		"subscriptions": dash.Subscriptions,
		"summary":       dash.Summary,
		"lastSync":      dash.LastSync,
		"sample":        dash.Sample,
		"notices":       connectionNotices(c.Request.URL.Query()),
	})
}

// Insights returns the category breakdown and annual projection.
func (h *DashboardHandler) Insights(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Insights(c.Request.Context(), session.Token(c)))
}

// Calendar returns one month of billing dates.
func (h *DashboardHandler) Calendar(c *gin.Context) {
	cal, err := h.dashboard.Calendar(c.Request.Context(), session.Token(c), strings.TrimSpace(c.Query("month")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "month must be formatted as YYYY-MM.")
		return
	}
	c.JSON(http.StatusOK, cal)
}

// GetReminders returns the session's reminder preferences.
func (h *DashboardHandler) GetReminders(c *gin.Context) {
	settings, err := h.Settings.GetReminders(c.Request.Context(), session.ID(c))
	if err != nil {
		h.log().Error("load reminders failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "server_error", "Failed to load reminder settings.")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PutReminders replaces the session's reminder preferences.
func (h *DashboardHandler) PutReminders(c *gin.Context) {
	var req struct {
		SevenDay *bool `json:"sevenDay" binding:"required"`
		ThreeDay *bool `json:"threeDay" binding:"required"`
		OneDay   *bool `json:"oneDay" binding:"required"`
		Email    *bool `json:"email" binding:"required"`
		Push     *bool `json:"push" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "All reminder flags are required.")
		return
	}
	settings := domain.ReminderSettings{
		SevenDay: *req.SevenDay,
		ThreeDay: *req.ThreeDay,
		OneDay:   *req.OneDay,
		Email:    *req.Email,
		Push:     *req.Push,
	}
	if err := h.Settings.PutReminders(c.Request.Context(), session.ID(c), settings); err != nil {
		h.log().Error("save reminders failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "server_error", "Failed to save reminder settings.")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func connectionNotices(q url.Values) []domaingmail.Notice {
	notices := []domaingmail.Notice{}
	if errText := strings.TrimSpace(q.Get("error")); errText != "" {
		return append(notices, domaingmail.Notice{Level: domaingmail.NoticeError, Text: "Error: " + errText})
	}
	email := strings.TrimSpace(q.Get("email"))
	if q.Get("gmail_connected") == "true" && email != "" {
		notices = append(notices,
			domaingmail.Notice{Level: domaingmail.NoticeSuccess, Text: "Gmail connected successfully!"},
			domaingmail.Notice{Level: domaingmail.NoticeInfo, Text: "Scanning " + email + " for subscriptions..."},
		)
	}
	return notices
}

func (h *DashboardHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}
