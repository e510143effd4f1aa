package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API. "*" allows any.
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	// ExposeHeaders are response headers readable by browser scripts.
	ExposeHeaders []string
	MaxAge        string
}

// DefaultCORSConfig allows any origin to read listings, stats and exports
// and to upload files.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", RequestIDHeader},
		MaxAge:        "86400",
	}
}

// CORS answers preflight requests and sets Access-Control-* headers for
// allowed origins. Requests from other origins pass through without them.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		c.Writer.Header().Add("Vary", "Origin")

		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case slices.Contains(cfg.AllowOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
		default:
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		if expose != "" {
			c.Header("Access-Control-Expose-Headers", expose)
		}
		c.Header("Access-Control-Max-Age", cfg.MaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
