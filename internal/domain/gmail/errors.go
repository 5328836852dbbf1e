package gmail

import "errors"

var (
	// ErrClientNotConfigured signals the direct flow has no usable OAuth client id.
	ErrClientNotConfigured = errors.New("gmail: oauth client not configured")
	// ErrConnectionInProgress is returned while another attempt for the same session is running.
	ErrConnectionInProgress = errors.New("gmail: connection already in progress")
	// ErrBackendUnavailable indicates the backend did not answer the availability probe.
	ErrBackendUnavailable = errors.New("gmail: backend unavailable")
	// ErrInvalidCallback indicates the provider redirect carried neither code nor error.
	ErrInvalidCallback = errors.New("gmail: invalid callback parameters")
	// ErrAuthorizationDenied wraps the error the provider appended to the redirect.
	ErrAuthorizationDenied = errors.New("gmail: authorization denied")
)
