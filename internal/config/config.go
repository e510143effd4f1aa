package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults applied by Validate when a value is left unset.
const (
	DefaultPageSize     = 20
	DefaultMaxUploadMB  = 10
	DefaultMetricsPath  = "/metrics"
	maxPageSize         = 500
	maxUploadMBLimit    = 512
	envPrefix           = "APP__"
	envHierarchySep     = "__"
	defaultSlowQuery    = "200ms"
	defaultPostgresPort = 5432
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Listing  ListingConfig  `koanf:"listing"`
	Upload   UploadConfig   `koanf:"upload"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	CSRFSecret string `koanf:"csrf_secret"`
	// TrustRequestID reuses X-Request-ID from an upstream proxy.
	TrustRequestID bool       `koanf:"trust_request_id"`
	CORS           CORSConfig `koanf:"cors"`
}

// CORSConfig holds CORS middleware settings for the JSON API.
type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
	// SlowQuery is the threshold above which statements are logged at Warn.
	SlowQuery string `koanf:"slow_query"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings. They are handed to
// database/sql unchanged.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// ListingConfig controls the record listing.
type ListingConfig struct {
	// PageSize is fixed server side; clients cannot change it.
	PageSize int `koanf:"page_size"`
}

// UploadConfig controls file imports.
type UploadConfig struct {
	MaxSizeMB int `koanf:"max_size_mb"`
	// Atomic rolls back the whole batch when one record fails instead of
	// keeping the records inserted before it.
	Atomic bool `koanf:"atomic"`
}

// MaxBytes is the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and a double underscore between
// levels, e.g. APP__LISTING__PAGE_SIZE=50 overrides listing.page_size.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps APP__DATABASE__POOL__MAX_IDLE_CONNS to database.pool.max_idle_conns.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, envHierarchySep, ".")
}

// Validate normalizes values, fills defaults and rejects invalid settings.
func (c *Config) Validate() error {
	for _, validate := range []func() error{
		c.Server.validate,
		func() error { return c.Database.validate(c.Server.Mode) },
		c.Log.validate,
		c.Listing.validate,
		c.Upload.validate,
		c.Metrics.validate,
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServerConfig) validate() error {
	s.Mode = strings.TrimSpace(s.Mode)
	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", s.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", s.Port)
	}
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		return errors.New("server.host is required")
	}

	origins := s.CORS.AllowOrigins[:0]
	for _, o := range s.CORS.AllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	s.CORS.AllowOrigins = origins
	return nil
}

func (d *DatabaseConfig) validate(mode string) error {
	switch d.Driver {
	case "sqlite":
		d.SQLite.Path = strings.TrimSpace(d.SQLite.Path)
		if d.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required when driver is sqlite")
		}
	case "postgres":
		if err := d.Postgres.validate(mode); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", d.Driver, "sqlite", "postgres")
	}

	if d.Pool.MaxIdleConns < 0 || d.Pool.MaxOpenConns < 0 {
		return errors.New("database.pool connection counts must not be negative")
	}
	if err := positiveDuration("database.pool.conn_max_lifetime", &d.Pool.ConnMaxLifetime, ""); err != nil {
		return err
	}
	return positiveDuration("database.slow_query", &d.SlowQuery, defaultSlowQuery)
}

func (p *PostgresConfig) validate(mode string) error {
	p.Host = strings.TrimSpace(p.Host)
	p.User = strings.TrimSpace(p.User)
	p.DBName = strings.TrimSpace(p.DBName)
	p.SSLMode = strings.TrimSpace(p.SSLMode)

	if p.Host == "" {
		return errors.New("database.postgres.host is required when driver is postgres")
	}
	if p.Port == 0 {
		p.Port = defaultPostgresPort
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", p.Port)
	}
	if p.User == "" {
		return errors.New("database.postgres.user is required when driver is postgres")
	}
	if p.DBName == "" {
		return errors.New("database.postgres.dbname is required when driver is postgres")
	}

	switch p.SSLMode {
	case "require", "verify-ca", "verify-full":
	case "disable", "allow", "prefer":
		if mode == gin.ReleaseMode {
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", p.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
		}
	default:
		return fmt.Errorf("invalid database.postgres.sslmode %q", p.SSLMode)
	}
	return nil
}

func (l *LogConfig) validate() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", l.Level, "debug", "info", "warn", "error")
	}

	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", l.Format, "text", "json")
	}
	return nil
}

func (l *ListingConfig) validate() error {
	if l.PageSize == 0 {
		l.PageSize = DefaultPageSize
	}
	if l.PageSize < 1 || l.PageSize > maxPageSize {
		return fmt.Errorf("invalid listing.page_size %d: must be between 1 and %d", l.PageSize, maxPageSize)
	}
	return nil
}

func (u *UploadConfig) validate() error {
	if u.MaxSizeMB == 0 {
		u.MaxSizeMB = DefaultMaxUploadMB
	}
	if u.MaxSizeMB < 1 || u.MaxSizeMB > maxUploadMBLimit {
		return fmt.Errorf("invalid upload.max_size_mb %d: must be between 1 and %d", u.MaxSizeMB, maxUploadMBLimit)
	}
	return nil
}

func (m *MetricsConfig) validate() error {
	m.Path = strings.TrimSpace(m.Path)
	if m.Path == "" {
		m.Path = DefaultMetricsPath
	}
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("invalid metrics.path %q: must start with '/'", m.Path)
	}
	if strings.HasPrefix(m.Path, "/api/") || strings.HasPrefix(m.Path, "/stations") {
		return fmt.Errorf("invalid metrics.path %q: collides with application routes", m.Path)
	}
	return nil
}

// positiveDuration trims *v, substitutes def when it is empty and checks
// that the result, if any, parses to a positive duration.
func positiveDuration(name string, v *string, def string) error {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		*v = def
	}
	if *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, *v)
	}
	return nil
}
