package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerConfig tunes the access log.
type LoggerConfig struct {
	// SkipPaths are request paths that are never logged, such as probes
	// and the metrics scrape endpoint.
	SkipPaths []string
}

// Logger writes one access log line per request. 5xx responses log at Error,
// 4xx at Warn and everything else at Info. Log calls use the request context
// so the request_id attached by RequestID is included.
func Logger(log *slog.Logger, cfg LoggerConfig) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, slog.String("errors", errs.String()))
		}
		log.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}
