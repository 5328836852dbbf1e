package gmail

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/smallbiznis/subtrack/internal/config"
	domaingmail "github.com/smallbiznis/subtrack/internal/domain/gmail"
	"github.com/smallbiznis/subtrack/internal/metrics"
)

// Scopes requested by the direct flow: read-only mailbox plus basic profile.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// GoogleEndpoint is Google's v2 authorization endpoint.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

const (
	msgCredentialsMissing = "Please configure Google OAuth credentials in .env file"
	msgSetupInstructions  = "Check GOOGLE_OAUTH_SETUP.md for instructions"
)

// AvailabilityProbe reports whether the backend is reachable. It must not block
// longer than its own bound and never fails.
type AvailabilityProbe interface {
	Available(ctx context.Context) bool
}

// RedirectSource yields the backend-brokered OAuth entry point.
type RedirectSource interface {
	ConnectRedirectURL() string
}

// InitiateOutcome is what the browser should do after a connection attempt.
// Navigation is nil when the attempt was rejected.
type InitiateOutcome struct {
	Attempt    domaingmail.ConnectionAttempt
	Navigation *domaingmail.Navigation
	Notices    []domaingmail.Notice
}

// Initiator decides how to obtain mailbox authorization for a session.
type Initiator struct {
	cfg      config.Config
	probe    AvailabilityProbe
	backend  RedirectSource
	oauth    *oauth2.Config
	ids      *snowflake.Node
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewInitiator wires the connection initiator.
func NewInitiator(cfg config.Config, probe AvailabilityProbe, backend RedirectSource, ids *snowflake.Node, m *metrics.Metrics, logger *zap.Logger) *Initiator {
	return &Initiator{
		cfg:     cfg,
		probe:   probe,
		backend: backend,
		oauth: &oauth2.Config{
			ClientID:    cfg.GoogleClientID,
			RedirectURL: cfg.CallbackURL(),
			Scopes:      Scopes,
			Endpoint:    GoogleEndpoint,
		},
		ids:      ids,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Initiate probes the backend and picks exactly one strategy.
//
// Repeated calls for a session while an attempt is in flight return
// ErrConnectionInProgress. When the direct flow is needed but no client id is
// configured, the outcome carries the two configuration notices and
// ErrClientNotConfigured is returned; no navigation is produced.
func (i *Initiator) Initiate(ctx context.Context, sessionID string) (*InitiateOutcome, error) {
	if !i.acquire(sessionID) {
		i.metrics.IncAttempt("busy")
		return nil, domaingmail.ErrConnectionInProgress
	}
	defer i.release(sessionID)

	attempt := domaingmail.ConnectionAttempt{
		ID:        i.nextID(),
		SessionID: sessionID,
		StartedAt: i.now(),
	}
	attempt.BackendAvailable = i.probe.Available(ctx)

	if attempt.BackendAvailable {
		attempt.Strategy = domaingmail.StrategyBackendRedirect
		i.logAttempt(attempt)
		return &InitiateOutcome{
			Attempt:    attempt,
			Navigation: &domaingmail.Navigation{Path: i.backend.ConnectRedirectURL()},
		}, nil
	}

	attempt.Strategy = domaingmail.StrategyDirectRedirect
	if !i.cfg.GoogleClientConfigured() {
		i.metrics.IncAttempt("not_configured")
		i.log().Warn("gmail connect: oauth client id not configured",
			zap.Int64("attempt_id", attempt.ID),
			zap.String("session_id", sessionID),
		)
		return &InitiateOutcome{
			Attempt: attempt,
			Notices: []domaingmail.Notice{
				{Level: domaingmail.NoticeError, Text: msgCredentialsMissing},
				{Level: domaingmail.NoticeInfo, Text: msgSetupInstructions},
			},
		}, domaingmail.ErrClientNotConfigured
	}

	i.logAttempt(attempt)
	return &InitiateOutcome{
		Attempt:    attempt,
		Navigation: &domaingmail.Navigation{Path: i.DirectAuthURL()},
	}, nil
}

// DirectAuthURL builds the provider URL for the direct flow. Offline access and
// a forced consent prompt make sure a refresh token is always granted.
func (i *Initiator) DirectAuthURL() string {
	return i.oauth.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (i *Initiator) acquire(sessionID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.inflight[sessionID]; busy {
		return false
	}
	i.inflight[sessionID] = struct{}{}
	return true
}

func (i *Initiator) release(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.inflight, sessionID)
}

func (i *Initiator) nextID() int64 {
	if i.ids == nil {
		return 0
	}
	return i.ids.Generate().Int64()
}

func (i *Initiator) logAttempt(attempt domaingmail.ConnectionAttempt) {
	i.metrics.IncAttempt(string(attempt.Strategy))
	i.log().Info("gmail connect",
		zap.Int64("attempt_id", attempt.ID),
		zap.String("session_id", attempt.SessionID),
		zap.Bool("backend_available", attempt.BackendAvailable),
		zap.String("strategy", string(attempt.Strategy)),
	)
}

func (i *Initiator) log() *zap.Logger {
	if i != nil && i.logger != nil {
		return i.logger
	}
	return zap.L()
}
