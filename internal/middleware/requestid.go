package middleware

import (
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	// RequestIDHeader carries the request id on requests and responses.
	RequestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// RequestIDConfig controls request-id reuse behavior.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed incoming X-Request-ID, e.g. one set
	// by a reverse proxy. Otherwise every request gets a fresh UUID.
	TrustUpstream bool
}

// RequestID tags each request with an id. The id is echoed in the response
// header, stored on the gin.Context and attached to the request context so
// that every log line written with that context carries it.
func RequestID(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if cfg.TrustUpstream {
			if upstream := c.GetHeader(RequestIDHeader); requestIDPattern.MatchString(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(
			logger.WithContextAttrs(c.Request.Context(), slog.String("request_id", id)),
		)

		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}
