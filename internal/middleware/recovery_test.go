package middleware

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRecoveryRouter(buf *bytes.Buffer, withTemplates bool) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(RequestIDConfig{}), Recovery(newTestLogger(buf)))
	if withTemplates {
		r.SetHTMLTemplate(template.Must(template.New("").Parse(
			`{{define "errors/500.html"}}oops {{.RequestID}}{{end}}`,
		)))
	}
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestRecovery_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	r := setupRecoveryRouter(&buf, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if w.Code != http.StatusOK || buf.Len() != 0 {
		t.Errorf("unexpected status %d or log %q", w.Code, buf.String())
	}
}

func TestRecovery_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := setupRecoveryRouter(&buf, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["message"] != "internal server error" {
		t.Errorf("unexpected message %v", body["message"])
	}
	if body["request_id"] != w.Header().Get(RequestIDHeader) {
		t.Errorf("expected request id in body, got %v", body["request_id"])
	}
	for _, want := range []string{"panic recovered", "kaboom", "stack="} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in log:\n%s", want, buf.String())
		}
	}
}

func TestRecovery_HTML(t *testing.T) {
	var buf bytes.Buffer
	r := setupRecoveryRouter(&buf, true)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "oops ") {
		t.Errorf("expected error page, got %q", w.Body.String())
	}
}

func TestRecovery_HTMLWithoutRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := setupRecoveryRouter(&buf, false)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "500") {
		t.Errorf("expected plain text fallback, got %q", w.Body.String())
	}
}
