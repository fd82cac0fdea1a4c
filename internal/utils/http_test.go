package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Host = "study.example.edu"
	return c
}

func TestUrlFor(t *testing.T) {
	c := newTestContext(t)

	if got := UrlFor(c, "/api/sessions/7/qr.png"); got != "http://study.example.edu/api/sessions/7/qr.png" {
		t.Errorf("UrlFor = %q", got)
	}
	// A missing leading slash is supplied.
	if got := UrlFor(c, "checkin"); got != "http://study.example.edu/checkin" {
		t.Errorf("UrlFor without slash = %q", got)
	}

	c.Request.Header.Set("X-Forwarded-Proto", "https")
	if got := UrlFor(c, "/checkin"); got != "https://study.example.edu/checkin" {
		t.Errorf("UrlFor behind proxy = %q", got)
	}
}

func TestGetBaseURL(t *testing.T) {
	c := newTestContext(t)

	if got := GetBaseURL(c, "https://studyhall.example.com"); got != "https://studyhall.example.com" {
		t.Errorf("configured base URL not honored, got %q", got)
	}
	if got := GetBaseURL(c, ""); got != "http://study.example.edu" {
		t.Errorf("detected base URL = %q", got)
	}
}

func TestGetVersion(t *testing.T) {
	BuildVersion = "v1.2.3"
	defer func() { BuildVersion = "" }()

	if got := GetVersion(); got != "v1.2.3" {
		t.Errorf("GetVersion = %q, want release override", got)
	}

	BuildVersion = ""
	if got := GetVersion(); got == "" {
		t.Errorf("GetVersion returned empty string without an override")
	}
}
