package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/gasboard/internal/config"
	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/middleware"
	"github.com/simp-lee/gasboard/internal/module/station"
	"github.com/simp-lee/gasboard/web"
)

const shutdownTimeout = 5 * time.Second

// App holds the wired HTTP engine and the resources it must release.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

var notifyContext = signal.NotifyContext

// New wires the application from cfg: logger, database, the station module,
// middleware, templates and routes. Resources opened before a failure are
// released before New returns.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = log.Close()
		}
	}()

	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if !ok {
			closeDB(db)
		}
	}()

	if cfg.Server.Mode == gin.DebugMode {
		if err := db.AutoMigrate(&domain.PriceRecord{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed")
	}

	limits := station.Limits{
		PageSize:       cfg.Listing.PageSize,
		MaxUploadBytes: cfg.Upload.MaxBytes(),
	}
	svc := station.NewStationService(station.NewStationRepository(db), station.Options{
		AtomicImport: cfg.Upload.Atomic,
	})
	stations := station.NewModule(
		station.NewStationHandler(svc, limits),
		station.NewStationPageHandler(svc, limits),
	)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	if n := cfg.Upload.MaxBytes(); n > 0 {
		engine.MaxMultipartMemory = n
	}
	engine.Use(buildMiddleware(cfg, log)...)

	renderer, err := newRenderer(cfg.Server.Mode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	csrfSecret, err := resolveCSRFSecret(cfg.Server.Mode, cfg.Server.CSRFSecret)
	if err != nil {
		return nil, err
	}
	if csrfSecret != cfg.Server.CSRFSecret {
		log.Warn("no csrf_secret configured, using a random secret until restart")
	}

	deps := &RouteDeps{
		Modules:    []Module{stations},
		DB:         db,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
	}
	if cfg.Metrics.Enabled {
		deps.MetricsPath = cfg.Metrics.Path
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("debug mode is listening on all interfaces")
	}

	ok = true
	return &App{engine: engine, db: db, logger: log, cfg: cfg}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.engine
}

func buildMiddleware(cfg *config.Config, log *logger.Logger) []gin.HandlerFunc {
	skip := []string{"/health"}
	if cfg.Metrics.Enabled {
		skip = append(skip, cfg.Metrics.Path)
	}

	mw := []gin.HandlerFunc{
		middleware.Recovery(log.Logger),
		middleware.RequestID(middleware.RequestIDConfig{TrustUpstream: cfg.Server.TrustRequestID}),
		middleware.Logger(log.Logger, middleware.LoggerConfig{SkipPaths: skip}),
	}
	if cfg.Metrics.Enabled {
		mw = append(mw, middleware.Metrics())
	}
	return append(mw, middleware.CORS(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS.AllowOrigins)))
}

// resolveCORSConfig denies cross-origin calls in release mode unless an
// allow-list is configured.
func resolveCORSConfig(mode string, allowOrigins []string) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	switch {
	case len(allowOrigins) > 0:
		cors.AllowOrigins = allowOrigins
	case mode == gin.ReleaseMode:
		cors.AllowOrigins = nil
	}
	return cors
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// resolveCSRFSecret returns the configured secret, or a random one outside
// release mode when the configured value is empty or a placeholder.
func resolveCSRFSecret(mode, secret string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(secret)) {
	case "", "change-me", "change-me-in-env":
	default:
		return secret, nil
	}
	if mode == gin.ReleaseMode {
		return "", errors.New("server.csrf_secret must be set to a real secret in release mode")
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// newRenderer reads templates from disk in debug mode so edits show up on
// reload, and from the embedded copy otherwise.
func newRenderer(mode string) (*TemplateRenderer, error) {
	if mode != gin.DebugMode {
		return NewTemplateRenderer(web.EmbeddedFS, false)
	}
	fsys, err := debugWebFS()
	if err != nil {
		return nil, err
	}
	return NewTemplateRenderer(fsys, true)
}

func debugWebFS() (fs.FS, error) {
	candidates := []string{}
	if _, file, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), "..", "..", "web"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "web"))
	}
	for _, dir := range candidates {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return os.DirFS(filepath.Clean(dir)), nil
		}
	}
	return nil, errors.New("debug web directory not found")
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully and
// closes the database and logger.
func (a *App) Run() error {
	if a == nil || a.engine == nil || a.cfg == nil {
		return errors.New("app is not initialized")
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", slog.Any("error", err))
		}
		cancel()
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	closeDB(a.db)
	slog.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}
	return runErr
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("database close error", slog.Any("error", err))
		return
	}
	slog.Info("database connection closed")
}
