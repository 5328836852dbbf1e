package gmail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/adapter/backend"
	domaingmail "github.com/smallbiznis/subtrack/internal/domain/gmail"
	"github.com/smallbiznis/subtrack/internal/metrics"
	"github.com/smallbiznis/subtrack/internal/repository"
)

const (
	// DashboardPath and SettingsPath are the in-app landing pages after a callback.
	DashboardPath = "/app"
	SettingsPath  = "/app/settings"

	exchangedDelay = 2 * time.Second
	fallbackDelay  = 3 * time.Second
	errorDelay     = 3 * time.Second
)

const (
	msgDenied          = "Authorization was denied or failed"
	msgInvalidParams   = "Invalid callback parameters"
	msgConnected       = "Successfully connected! Found %d subscriptions."
	msgDegraded        = "Gmail authorization completed! In production, this would sync your subscriptions."
	msgExchangeFailed  = "Gmail authorization received! Connect backend to complete the process."
	noticeConnected    = "Gmail connected successfully!"
	noticeDegraded     = "Demo mode: Backend not running. Connect backend to sync actual subscriptions."
	noticeExchangeFail = "Authorization code received. Start backend to complete Gmail integration."
)

// Callback branches, also used as metric labels.
const (
	BranchProviderError = "provider_error"
	BranchMissingCode   = "missing_code"
	BranchExchanged     = "exchanged"
	BranchDegraded      = "degraded"
	BranchExchangeError = "exchange_error"
)

// CallbackParams are the query parameters the provider appends to the redirect.
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// ParamsFromQuery reads code, state and error from a query string.
func ParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:  strings.TrimSpace(q.Get("code")),
		State: strings.TrimSpace(q.Get("state")),
		Error: strings.TrimSpace(q.Get("error")),
	}
}

// Caller identifies the browser session a callback belongs to.
type Caller struct {
	SessionID string
	Token     string
}

// Exchanger forwards an authorization code to the backend.
type Exchanger interface {
	CompleteGmailConnection(ctx context.Context, token, code, state string) (*backend.GmailCallbackResponse, error)
}

// CallbackOutcome is the terminal state of one callback plus where to go next.
type CallbackOutcome struct {
	Result     *domaingmail.CallbackResult
	Navigation domaingmail.Navigation
	Notices    []domaingmail.Notice
	Branch     string
	// Err explains a non-happy branch. It never changes the rendered result.
	Err error
}

// CallbackHandler drives a provider redirect to a terminal result.
type CallbackHandler struct {
	probe       AvailabilityProbe
	exchanger   Exchanger
	artifacts   repository.ArtifactStore
	artifactTTL time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewCallbackHandler wires the callback handler.
func NewCallbackHandler(probe AvailabilityProbe, exchanger Exchanger, artifacts repository.ArtifactStore, artifactTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		probe:       probe,
		exchanger:   exchanger,
		artifacts:   artifacts,
		artifactTTL: artifactTTL,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle resolves a callback. It never fails: every branch ends in a terminal
// status and a scheduled navigation.
func (h *CallbackHandler) Handle(ctx context.Context, caller Caller, params CallbackParams) *CallbackOutcome {
	result := domaingmail.NewCallbackResult(params.Code, params.State)

	if params.Error != "" {
		h.log().Info("gmail callback: provider reported error", zap.String("session_id", caller.SessionID), zap.String("error", params.Error))
		out := h.finish(result, BranchProviderError, domaingmail.StatusError, msgDenied, SettingsPath, errorDelay)
		out.Err = fmt.Errorf("%w: %s", domaingmail.ErrAuthorizationDenied, params.Error)
		return out
	}
	if params.Code == "" {
		out := h.finish(result, BranchMissingCode, domaingmail.StatusError, msgInvalidParams, SettingsPath, errorDelay)
		out.Err = domaingmail.ErrInvalidCallback
		return out
	}

	available := h.probe.Available(ctx)
	if available && params.State != "" {
		resp, err := h.exchanger.CompleteGmailConnection(ctx, caller.Token, params.Code, params.State)
		if err == nil {
			h.clearArtifact(ctx, caller.SessionID)
			out := h.finish(result, BranchExchanged, domaingmail.StatusSuccess, fmt.Sprintf(msgConnected, resp.SubscriptionsFound), DashboardPath, exchangedDelay)
			out.Notices = []domaingmail.Notice{{Level: domaingmail.NoticeSuccess, Text: noticeConnected}}
			return out
		}
		// Backend failures are shown as success with a caveat so an outage
		// does not block the user.
		h.log().Error("gmail callback: code exchange failed", zap.String("session_id", caller.SessionID), zap.Error(err))
		h.retainArtifact(ctx, caller.SessionID, params)
		out := h.finish(result, BranchExchangeError, domaingmail.StatusSuccess, msgExchangeFailed, DashboardPath, fallbackDelay)
		out.Notices = []domaingmail.Notice{{Level: domaingmail.NoticeInfo, Text: noticeExchangeFail}}
		out.Err = fmt.Errorf("%w: %w", domaingmail.ErrBackendUnavailable, err)
		return out
	}

	h.retainArtifact(ctx, caller.SessionID, params)
	out := h.finish(result, BranchDegraded, domaingmail.StatusSuccess, msgDegraded, DashboardPath, fallbackDelay)
	out.Notices = []domaingmail.Notice{{Level: domaingmail.NoticeInfo, Text: noticeDegraded}}
	if !available {
		out.Err = domaingmail.ErrBackendUnavailable
	}
	return out
}

// retainArtifact keeps the code for a backend that may come up later.
// Nothing consumes it yet.
func (h *CallbackHandler) retainArtifact(ctx context.Context, sessionID string, params CallbackParams) {
	if h.artifacts == nil {
		return
	}
	artifact := domaingmail.AuthorizationArtifact{
		Code:      params.Code,
		State:     params.State,
		CreatedAt: h.now().UTC(),
	}
	if err := h.artifacts.Save(ctx, sessionID, artifact, h.artifactTTL); err != nil {
		h.log().Warn("gmail callback: failed to retain authorization artifact", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// clearArtifact drops a code retained by an earlier degraded callback once the
// backend has linked the mailbox.
func (h *CallbackHandler) clearArtifact(ctx context.Context, sessionID string) {
	if h.artifacts == nil {
		return
	}
	if err := h.artifacts.Clear(ctx, sessionID); err != nil {
		h.log().Warn("gmail callback: failed to clear authorization artifact", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (h *CallbackHandler) finish(result *domaingmail.CallbackResult, branch string, status domaingmail.Status, message, path string, delay time.Duration) *CallbackOutcome {
	if err := result.Resolve(status, message); err != nil {
		h.log().Warn("gmail callback: result already resolved", zap.Error(err))
	}
	h.metrics.IncCallback(branch)
	return &CallbackOutcome{
		Result:     result,
		Navigation: domaingmail.Navigation{Path: path, Delay: delay},
		Branch:     branch,
	}
}

func (h *CallbackHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}

// Mount binds one callback to the parameters present when the page was
// opened. Resolve runs the handler once; later calls return the first outcome.
type Mount struct {
	handler *CallbackHandler
	caller  Caller
	params  CallbackParams
	once    sync.Once
	outcome *CallbackOutcome
}

// Mount prepares a single callback resolution.
func (h *CallbackHandler) Mount(caller Caller, params CallbackParams) *Mount {
	return &Mount{handler: h, caller: caller, params: params}
}

// Resolve runs the callback the first time and replays its outcome afterwards.
func (m *Mount) Resolve(ctx context.Context) *CallbackOutcome {
	m.once.Do(func() {
		m.outcome = m.handler.Handle(ctx, m.caller, m.params)
	})
	return m.outcome
}
