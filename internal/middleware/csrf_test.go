package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const testCSRFSecret = "test-secret-key-for-csrf"

func setupCSRFRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(CSRF(secret))
	r.GET("/stations/upload", func(c *gin.Context) { c.String(http.StatusOK, GetCSRFToken(c)) })
	r.POST("/stations/upload", func(c *gin.Context) { c.String(http.StatusOK, "uploaded") })
	return r
}

// fetchToken performs a GET and returns the token rendered for templates and
// the cookie that carries it.
func fetchToken(t *testing.T, r *gin.Engine) (string, *http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stations/upload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			return w.Body.String(), c
		}
	}
	t.Fatal("expected csrf cookie")
	return "", nil
}

func postForm(r *gin.Engine, cookie *http.Cookie, token string) *httptest.ResponseRecorder {
	form := url.Values{}
	if token != "" {
		form.Set(CSRFFormField, token)
	}
	req := httptest.NewRequest(http.MethodPost, "/stations/upload", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCSRF_IssuesSignedToken(t *testing.T) {
	r := setupCSRFRouter(testCSRFSecret)

	token, cookie := fetchToken(t, r)
	if token != cookie.Value {
		t.Errorf("template token %q differs from cookie %q", token, cookie.Value)
	}
	if !validToken(token, []byte(testCSRFSecret)) {
		t.Error("expected a validly signed token")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Error("expected SameSite=Strict")
	}
}

func TestCSRF_ReusesValidCookie(t *testing.T) {
	r := setupCSRFRouter(testCSRFSecret)
	_, cookie := fetchToken(t, r)

	req := httptest.NewRequest(http.MethodGet, "/stations/upload", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != cookie.Value {
		t.Errorf("expected existing token to be reused")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("expected no new cookie")
	}
}

func TestCSRF_PostWithFormToken(t *testing.T) {
	r := setupCSRFRouter(testCSRFSecret)
	token, cookie := fetchToken(t, r)

	w := postForm(r, cookie, token)
	if w.Code != http.StatusOK || w.Body.String() != "uploaded" {
		t.Errorf("expected success, got %d %q", w.Code, w.Body.String())
	}
}

func TestCSRF_PostWithHeaderToken(t *testing.T) {
	r := setupCSRFRouter(testCSRFSecret)
	token, cookie := fetchToken(t, r)

	req := httptest.NewRequest(http.MethodPost, "/stations/upload", nil)
	req.Header.Set(csrfHeaderName, token)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCSRF_PostRejected(t *testing.T) {
	r := setupCSRFRouter(testCSRFSecret)
	token, cookie := fetchToken(t, r)
	other, _ := fetchToken(t, r)
	forged := &http.Cookie{Name: csrfCookieName, Value: "abcd.forged"}

	tests := []struct {
		name   string
		cookie *http.Cookie
		token  string
	}{
		{"no cookie", nil, token},
		{"no token", cookie, ""},
		{"mismatched token", cookie, other},
		{"forged signature", forged, forged.Value},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(r, tt.cookie, tt.token)
			if w.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", w.Code)
			}
		})
	}
}

func TestCSRF_TokenFromOtherSecretRejected(t *testing.T) {
	token, cookie := fetchToken(t, setupCSRFRouter("another-secret"))

	w := postForm(setupCSRFRouter(testCSRFSecret), cookie, token)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestCSRF_EmptySecret(t *testing.T) {
	r := setupCSRFRouter("  ")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stations/upload", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestGetCSRFToken_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetCSRFToken(c); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
