package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupCORSRouter(cfg CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/api/v1/stations", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.OPTIONS("/api/v1/stations", func(c *gin.Context) { c.String(http.StatusOK, "handler") })
	return r
}

func TestCORS_NoOrigin(t *testing.T) {
	r := setupCORSRouter(DefaultCORSConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil))

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers, got %q", got)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	r := setupCORSRouter(DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition, X-Request-ID" {
		t.Errorf("unexpected expose headers %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

func TestCORS_AllowList(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://ok.example.com"}
	r := setupCORSRouter(cfg)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://ok.example.com", "https://ok.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: got %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestCORS_EmptyAllowListDeniesAll(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{}
	r := setupCORSRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	req.Header.Set("Origin", "https://any.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := setupCORSRouter(DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stations", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("unexpected methods %q", got)
	}
}
