package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic in a later handler into a 500 response and an Error
// log line with the stack. Browsers get the errors/500.html page; any other
// client gets the JSON envelope used by the API.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)

			c.Abort()
			if strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html") {
				renderPanicPage(c)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":       http.StatusInternalServerError,
				"message":    "internal server error",
				"data":       nil,
				"request_id": GetRequestID(c),
			})
		}()
		c.Next()
	}
}

// renderPanicPage falls back to plain text when no HTML renderer is set up
// or the template itself fails.
func renderPanicPage(c *gin.Context) {
	defer func() {
		if recover() != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{"RequestID": GetRequestID(c)})
}
