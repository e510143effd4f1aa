package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultMaxIdleConns    = 10
	defaultMaxOpenConns    = 100
	defaultConnMaxLifetime = time.Hour
)

// SetupDatabase opens the configured database. SQL statements are logged
// through log: every statement at Info when log is at Debug, otherwise only
// slow statements and errors. Logged SQL keeps placeholders, so bound values
// such as search keywords never reach the log.
func SetupDatabase(cfg *DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log, cfg.SlowQuery),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pool := resolvePool(cfg.Pool)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetConnMaxLifetime(pool.lifetime)

	log.Info("database connected",
		slog.String("driver", cfg.Driver),
		slog.Int("max_idle_conns", pool.maxIdle),
		slog.Int("max_open_conns", pool.maxOpen),
		slog.Duration("conn_max_lifetime", pool.lifetime),
	)
	return db, nil
}

func openDialector(cfg *DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %q: %w", dir, err)
			}
		}
		return sqlite.Open(cfg.SQLite.Path), nil
	case "postgres":
		return postgres.Open(postgresDSN(&cfg.Postgres)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Scan and Row trace through gorm's recorder, which ignores
// ParameterizedQueries unless this filter is set.
func init() {
	gormlogger.RecorderParamsFilter = func(_ context.Context, sql string, _ ...any) (string, []any) {
		return sql, nil
	}
}

func newGormLogger(log *slog.Logger, slowQuery string) gormlogger.Interface {
	level := gormlogger.Warn
	if log.Enabled(context.Background(), slog.LevelDebug) {
		level = gormlogger.Info
	}
	slow, err := time.ParseDuration(slowQuery)
	if err != nil || slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return gormlogger.NewSlogLogger(log, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

type poolSettings struct {
	maxIdle  int
	maxOpen  int
	lifetime time.Duration
}

// resolvePool fills zero values with defaults. The lifetime has already been
// checked by Validate.
func resolvePool(p PoolConfig) poolSettings {
	s := poolSettings{
		maxIdle:  p.MaxIdleConns,
		maxOpen:  p.MaxOpenConns,
		lifetime: defaultConnMaxLifetime,
	}
	if s.maxIdle <= 0 {
		s.maxIdle = defaultMaxIdleConns
	}
	if s.maxOpen <= 0 {
		s.maxOpen = defaultMaxOpenConns
	}
	if d, err := time.ParseDuration(p.ConnMaxLifetime); err == nil && d > 0 {
		s.lifetime = d
	}
	return s
}

func postgresDSN(cfg *PostgresConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.DBName,
	}
	if cfg.User != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}
