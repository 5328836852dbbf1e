package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	domaingmail "github.com/smallbiznis/subtrack/internal/domain/gmail"
)

func TestRenderStatusSchedulesInAppRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/gmail-callback", nil)

	renderStatus(c, http.StatusOK, statusPage{Status: domaingmail.StatusSuccess, Message: "done"},
		&domaingmail.Navigation{Path: "/app", Delay: 2 * time.Second})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "2; url=/app", w.Header().Get("Refresh"))
	require.Contains(t, w.Body.String(), `content="2;url=/app"`)
	require.Contains(t, w.Body.String(), "Success!")
}

func TestRenderStatusIgnoresExternalRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/gmail-callback", nil)

	renderStatus(c, http.StatusOK, statusPage{Status: domaingmail.StatusError, Message: "nope"},
		&domaingmail.Navigation{Path: "https://evil.example/phish", Delay: time.Second})

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Refresh"))
	require.NotContains(t, w.Body.String(), "evil.example")
}
