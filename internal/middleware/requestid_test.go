package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRequestIDRouter(cfg RequestIDConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(cfg))
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	r.GET("/ctx", func(c *gin.Context) {
		for _, a := range logger.FromContext(c.Request.Context()) {
			if a.Key == "request_id" {
				c.String(http.StatusOK, a.Value.String())
				return
			}
		}
		c.String(http.StatusOK, "")
	})
	return r
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

	id := w.Body.String()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a UUID, got %q", id)
	}
	if got := w.Header().Get(RequestIDHeader); got != id {
		t.Errorf("expected header %q, got %q", id, got)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
		if seen[w.Body.String()] {
			t.Fatalf("duplicate id %q", w.Body.String())
		}
		seen[w.Body.String()] = true
	}
}

func TestRequestID_IgnoresUpstreamByDefault(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "from-proxy")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() == "from-proxy" {
		t.Error("upstream id must not be reused")
	}
}

func TestRequestID_TrustUpstream(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{TrustUpstream: true})

	tests := []struct {
		name     string
		upstream string
		reuse    bool
	}{
		{"valid", "abc-123", true},
		{"invalid characters", "abc<script>", false},
		{"too long", string(make([]byte, 65)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/id", nil)
			req.Header.Set(RequestIDHeader, tt.upstream)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Body.String() == tt.upstream; got != tt.reuse {
				t.Errorf("reuse = %v, want %v (id %q)", got, tt.reuse, w.Body.String())
			}
		})
	}
}

func TestRequestID_AttachedToContext(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ctx", nil))

	if w.Body.String() == "" || w.Body.String() != w.Header().Get(RequestIDHeader) {
		t.Errorf("context id %q does not match header %q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetRequestID(c); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
