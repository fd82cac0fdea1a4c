package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestScheme trusts X-Forwarded-Proto so links come out right behind a
// TLS-terminating proxy.
func requestScheme(c *gin.Context) string {
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		return "https"
	}
	return "http"
}

// UrlFor builds an absolute URL for a path on the host serving the request.
func UrlFor(c *gin.Context, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", requestScheme(c), c.Request.Host, path)
}

// GetBaseURL returns the configured base URL, falling back to the scheme
// and host of the incoming request.
func GetBaseURL(c *gin.Context, configBaseURL string) string {
	if configBaseURL != "" {
		return configBaseURL
	}
	return fmt.Sprintf("%s://%s", requestScheme(c), c.Request.Host)
}

// RenderTemplate renders a named template from the shared set on the gin
// context into a string, for bodies that leave the HTTP response path
// such as email.
func RenderTemplate(c *gin.Context, tmplName string, data any) (string, error) {
	var buf bytes.Buffer
	tmpl := c.MustGet("html").(*template.Template)
	if err := tmpl.ExecuteTemplate(&buf, tmplName, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
