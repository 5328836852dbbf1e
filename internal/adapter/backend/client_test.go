package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPClientCompleteGmailConnection(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/gmail/callback", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "email": "a@b.com", "subscriptionsFound": 4})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL+"/api/", nil, nil)
	resp, err := client.CompleteGmailConnection(context.Background(), "tok", "abc123", "xyz")
	require.NoError(t, err)
	require.Equal(t, 4, resp.SubscriptionsFound)
	require.Equal(t, "a@b.com", resp.Email)
	require.Equal(t, map[string]string{"code": "abc123", "state": "xyz"}, got)
}

func TestHTTPClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil, nil)
	_, err := client.CompleteGmailConnection(context.Background(), "", "abc", "xyz")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestHTTPClientListSubscriptionsShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"service_name":"Netflix","amount":15.49,"billing_cycle":"monthly"}]`, want: 1},
		{name: "wrapped", body: `{"subscriptions":[{"name":"Spotify","price":9.99},{"name":"iCloud","price":2.99}],"total":2}`, want: 2},
		{name: "null", body: `null`, want: 0},
		{name: "empty", body: ``, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/subscriptions", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			records, err := NewHTTPClient(srv.URL, nil, nil).ListSubscriptions(context.Background(), "tok")
			require.NoError(t, err)
			require.Len(t, records, tt.want)
		})
	}
}

func TestHTTPClientGoogleSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/google", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "jwt-token",
			"user":  map[string]any{"id": "1", "email": "user@example.com"},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil, nil)
	resp, err := client.GoogleSignIn(context.Background(), "google-credential")
	require.NoError(t, err)
	require.Equal(t, "jwt-token", resp.Token)
	require.Equal(t, "user@example.com", resp.User.Email)

	_, err = client.GoogleSignIn(context.Background(), " ")
	require.Error(t, err)
}

func TestHTTPClientConnectRedirectURL(t *testing.T) {
	client := NewHTTPClient("http://localhost:8080/api/", nil, nil)
	require.Equal(t, "http://localhost:8080/api/gmail/connect/redirect", client.ConnectRedirectURL())
}
