package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smallbiznis/subtrack/internal/metrics"
)

const tracerName = "github.com/smallbiznis/subtrack/internal/adapter/backend"

// Client encapsulates outbound HTTP calls to the SubTrack backend.
type Client interface {
	Health(ctx context.Context) error
	ConnectRedirectURL() string
	CompleteGmailConnection(ctx context.Context, token, code, state string) (*GmailCallbackResponse, error)
	ListSubscriptions(ctx context.Context, token string) ([]SubscriptionRecord, error)
	ScanGmail(ctx context.Context, token string) (map[string]any, error)
	DisconnectGmail(ctx context.Context, token string) (map[string]any, error)
	GoogleSignIn(ctx context.Context, credential string) (*SignInResponse, error)
}

// GmailCallbackResponse is returned by the code exchange endpoint.
type GmailCallbackResponse struct {
	Success            bool   `json:"success"`
	Email              string `json:"email"`
	SubscriptionsFound int    `json:"subscriptionsFound"`
}

// SignInResponse is returned by the Google sign-in endpoint.
type SignInResponse struct {
	Token string      `json:"token"`
	User  BackendUser `json:"user"`
}

// BackendUser is the profile the backend attaches to a sign-in.
type BackendUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// SubscriptionRecord is one subscription as extracted by the backend.
// Both the AI extraction fields and the stored subscription fields are accepted.
type SubscriptionRecord struct {
	ID              string   `json:"id,omitempty"`
	ServiceName     string   `json:"service_name,omitempty"`
	Name            string   `json:"name,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	BillingCycle    string   `json:"billing_cycle,omitempty"`
	BillingCycleAlt string   `json:"billingCycle,omitempty"`
	NextBillingDate string   `json:"next_billing_date,omitempty"`
	NextBillingAlt  string   `json:"nextBillingDate,omitempty"`
	Category        string   `json:"category,omitempty"`
	Color           string   `json:"color,omitempty"`
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Operation  string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status=%d", e.Operation, e.StatusCode)
}

// HTTPClient is the default HTTP implementation.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default Client. A nil http.Client gets a 10s timeout.
func NewHTTPClient(baseURL string, client *http.Client, m *metrics.Metrics) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		metrics:    m,
		tracer:     otel.Tracer(tracerName),
	}
}

// Health checks GET /health. Any 2xx counts as healthy.
func (c *HTTPClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, "/health", "", nil)
	return err
}

// ConnectRedirectURL is the backend endpoint that starts the brokered OAuth flow.
func (c *HTTPClient) ConnectRedirectURL() string {
	return c.baseURL + "/gmail/connect/redirect"
}

// CompleteGmailConnection hands the authorization code to the backend for token exchange.
func (c *HTTPClient) CompleteGmailConnection(ctx context.Context, token, code, state string) (*GmailCallbackResponse, error) {
	payload := map[string]string{"code": code, "state": state}
	body, err := c.do(ctx, "gmail_callback", http.MethodPost, "/gmail/callback", token, payload)
	if err != nil {
		return nil, err
	}
	var out GmailCallbackResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode gmail callback response: %w", err)
	}
	return &out, nil
}

// ListSubscriptions loads the user's subscriptions. The backend answers either
// with a bare array or with {"subscriptions": [...], "total": n}.
func (c *HTTPClient) ListSubscriptions(ctx context.Context, token string) ([]SubscriptionRecord, error) {
	body, err := c.do(ctx, "list_subscriptions", http.MethodGet, "/subscriptions", token, nil)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []SubscriptionRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode subscriptions: %w", err)
		}
		return records, nil
	}
	var wrapped struct {
		Subscriptions []SubscriptionRecord `json:"subscriptions"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return wrapped.Subscriptions, nil
}

// ScanGmail triggers a mailbox scan and returns the backend payload untouched.
func (c *HTTPClient) ScanGmail(ctx context.Context, token string) (map[string]any, error) {
	body, err := c.do(ctx, "gmail_scan", http.MethodPost, "/gmail/scan", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(body, "scan")
}

// DisconnectGmail revokes the mailbox link on the backend.
func (c *HTTPClient) DisconnectGmail(ctx context.Context, token string) (map[string]any, error) {
	body, err := c.do(ctx, "gmail_disconnect", http.MethodDelete, "/gmail/disconnect", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(body, "disconnect")
}

// GoogleSignIn exchanges a Google Sign-In credential for a SubTrack token.
func (c *HTTPClient) GoogleSignIn(ctx context.Context, credential string) (*SignInResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("google sign-in: credential missing")
	}
	body, err := c.do(ctx, "google_sign_in", http.MethodPost, "/auth/google", "", map[string]string{"credential": credential})
	if err != nil {
		return nil, err
	}
	var out SignInResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode sign-in response: %w", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, fmt.Errorf("google sign-in: empty token")
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, operation, method, path, token string, payload any) (body []byte, err error) {
	ctx, span := c.tracer.Start(ctx, "backend."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer func() {
		c.metrics.IncBackendCall(operation, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if payload != nil {
		encoded, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode %s request: %w", operation, marshalErr)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Operation: operation, StatusCode: resp.StatusCode}
	}
	return body, nil
}

func decodeObject(body []byte, what string) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", what, err)
	}
	return out, nil
}
