package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gasboard/internal/middleware"
	"github.com/simp-lee/gasboard/internal/pkg"
)

// errorTemplates maps HTTP status codes to their error template paths.
var errorTemplates = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// renderError answers with an error page for browsers and a JSON envelope
// for everything else.
func renderError(c *gin.Context, code int, message string) {
	accept := strings.ToLower(c.GetHeader("Accept"))
	// acceptsHTML also matches */*, so explicit JSON wins first.
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		c.JSON(code, pkg.Response{Code: code, Message: message})
		return
	}
	if acceptsHTML(c) {
		renderHTMLErrorPage(c, code)
		return
	}
	c.JSON(code, pkg.Response{Code: code, Message: message})
}

// renderHTMLErrorPage falls back to errors/500.html for unmapped codes and
// to plain text if rendering panics.
func renderHTMLErrorPage(c *gin.Context, code int) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8",
				[]byte(fmt.Sprintf("%d %s", code, defaultStatusText(code))))
		}
	}()

	tmpl, ok := errorTemplates[code]
	if !ok {
		tmpl = errorTemplates[http.StatusInternalServerError]
	}
	c.HTML(code, tmpl, gin.H{"RequestID": middleware.GetRequestID(c)})
}

// acceptsHTML matches text/html, */* and an empty Accept header.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "*/*") ||
		strings.TrimSpace(accept) == ""
}

func defaultStatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Error"
}
