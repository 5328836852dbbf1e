package gmail

import (
	"fmt"
	"time"
)

// Strategy is the way a ConnectionAttempt obtains mailbox authorization.
type Strategy string

const (
	// StrategyBackendRedirect hands the whole OAuth flow to the backend.
	StrategyBackendRedirect Strategy = "backend-redirect"
	// StrategyDirectRedirect builds the provider URL locally and lands on /gmail-callback.
	StrategyDirectRedirect Strategy = "direct-redirect"
)

// ConnectionAttempt is one user request to link a mailbox.
type ConnectionAttempt struct {
	ID               int64
	SessionID        string
	BackendAvailable bool
	Strategy         Strategy
	StartedAt        time.Time
}

// Status of a CallbackResult.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// CallbackResult is the outcome of a provider redirect back to the app.
type CallbackResult struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Code    string `json:"-"`
	State   string `json:"-"`
}

// NewCallbackResult starts a result in the processing state.
func NewCallbackResult(code, state string) *CallbackResult {
	return &CallbackResult{
		Status:  StatusProcessing,
		Message: "Processing Gmail authorization...",
		Code:    code,
		State:   state,
	}
}

// Resolve moves the result to a terminal status. Status is monotonic, so
// resolving an already terminal result is an error and leaves it untouched.
func (r *CallbackResult) Resolve(status Status, message string) error {
	if !status.Terminal() {
		return fmt.Errorf("gmail: %q is not a terminal status", status)
	}
	if r.Status.Terminal() {
		return fmt.Errorf("gmail: callback already resolved as %s", r.Status)
	}
	r.Status = status
	r.Message = message
	return nil
}

// AuthorizationArtifact is a code/state pair retained when the backend could
// not consume it at callback time.
type AuthorizationArtifact struct {
	Code      string    `json:"code"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Navigation tells the browser where to go next. A zero Delay means redirect immediately.
type Navigation struct {
	Path  string        `json:"path"`
	Delay time.Duration `json:"delay"`
}

// External reports whether the target leaves this application.
func (n Navigation) External() bool {
	return len(n.Path) > 0 && n.Path[0] != '/'
}

// NoticeLevel mirrors the toast variants of the dashboard.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short message surfaced to the user alongside a result.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}
