package handler

import (
	"bytes"
	_ "embed"
	"html/template"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domaingmail "github.com/smallbiznis/subtrack/internal/domain/gmail"
)

//go:embed templates/status.html
var statusTemplateSource string

var statusTemplate = template.Must(template.New("status").Parse(statusTemplateSource))

type statusPage struct {
	Title          string
	Status         domaingmail.Status
	Message        string
	Notices        []domaingmail.Notice
	RefreshURL     string
	RefreshSeconds int
	BackURL        string
}

var statusTitles = map[domaingmail.Status]string{
	domaingmail.StatusProcessing: "Connecting Gmail",
	domaingmail.StatusSuccess:    "Success!",
	domaingmail.StatusError:      "Connection Failed",
}

// renderStatus writes the status page. A navigation with a path is executed by
// the browser through both a Refresh header and a meta refresh.
func renderStatus(c *gin.Context, code int, page statusPage, nav *domaingmail.Navigation) {
	if page.Title == "" {
		page.Title = statusTitles[page.Status]
	}
	// Delayed refreshes stay inside the app; providers are reached by redirect only.
	if nav != nil && nav.Path != "" && !nav.External() {
		page.RefreshURL = nav.Path
		page.RefreshSeconds = int(math.Ceil(nav.Delay.Seconds()))
		c.Header("Refresh", strconv.Itoa(page.RefreshSeconds)+"; url="+nav.Path)
	}

	var buf bytes.Buffer
	if err := statusTemplate.Execute(&buf, page); err != nil {
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(code, "text/html; charset=utf-8", buf.Bytes())
}

func respondError(c *gin.Context, status int, code, description string) {
	c.JSON(status, gin.H{"error": code, "error_description": description})
}
