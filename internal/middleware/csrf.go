package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	csrfCookieName = "gasboard_csrf"
	// CSRFFormField is the hidden form field that carries the token.
	CSRFFormField  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRF protects the HTML form routes with a signed double-submit cookie.
//
// A token is hex(nonce) + "." + base64url(HMAC-SHA256(secret, nonce)). Safe
// methods get a token cookie (issued if missing or badly signed) and expose
// the token to templates via GetCSRFToken. POST requests must echo the
// cookie's token in the csrf_token form field or the X-CSRF-Token header.
//
// The JSON API group does not use this middleware.
func CSRF(secret string) gin.HandlerFunc {
	key := []byte(strings.TrimSpace(secret))
	if len(key) == 0 {
		return func(c *gin.Context) {
			abortCSRF(c, http.StatusInternalServerError, "csrf secret is required")
		}
	}
	secure := gin.Mode() == gin.ReleaseMode

	return func(c *gin.Context) {
		cookie, _ := c.Cookie(csrfCookieName)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if !validToken(cookie, key) {
				token, err := newToken(key)
				if err != nil {
					abortCSRF(c, http.StatusInternalServerError, "failed to generate CSRF token")
					return
				}
				cookie = token
				http.SetCookie(c.Writer, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			c.Set(csrfContextKey, cookie)
			c.Next()
			return
		}

		sent := c.PostForm(CSRFFormField)
		if sent == "" {
			sent = c.GetHeader(csrfHeaderName)
		}
		if cookie == "" || sent == "" {
			abortCSRF(c, http.StatusForbidden, "CSRF token missing")
			return
		}
		if !validToken(cookie, key) || subtle.ConstantTimeCompare([]byte(cookie), []byte(sent)) != 1 {
			abortCSRF(c, http.StatusForbidden, "CSRF token invalid")
			return
		}
		c.Set(csrfContextKey, cookie)
		c.Next()
	}
}

// GetCSRFToken returns the token set by CSRF for this request, or "".
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func abortCSRF(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": msg, "data": nil})
}

func newToken(key []byte) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	n := hex.EncodeToString(nonce)
	return n + "." + sign(n, key), nil
}

func sign(nonce string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validToken(token string, key []byte) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(sign(nonce, key)))
}
