package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/simp-lee/gasboard/internal/middleware"
	"github.com/simp-lee/gasboard/internal/pkg"
	"github.com/simp-lee/gasboard/web"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules    []Module
	DB         *gorm.DB
	Mode       string
	CSRFSecret string
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}

	if err := registerStaticRoutes(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	r.GET("/health", healthHandler(deps.DB))
	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/stations")
	})

	// API routes carry no CSRF check; pages do.
	api := r.Group("/api/v1")
	pages := r.Group("/")
	pages.Use(middleware.CSRF(deps.CSRFSecret))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(noRouteHandler())
	return nil
}

// healthHandler pings the database and reports status.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pingDB(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "degraded",
				"components": gin.H{"database": "error"},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"components": gin.H{"database": "ok"},
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// noRouteHandler renders a 404 page for browsers and JSON for API clients.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
			return
		}
		renderError(c, http.StatusNotFound, "not found")
	}
}

func registerStaticRoutes(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		staticFS, err := resolveDebugStaticFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(staticFS)))
		r.GET("/static/*filepath", func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
		return nil
	}

	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("create sub filesystem for static assets: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

func resolveDebugStaticFS() (fs.FS, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("resolve current file path")
	}
	staticDir := filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", "..", "web", "static"))
	if _, err := os.Stat(staticDir); err != nil {
		return nil, fmt.Errorf("stat static directory %q: %w", staticDir, err)
	}
	return os.DirFS(staticDir), nil
}

// cacheStaticHandler serves embedded assets with a one-day Cache-Control.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
