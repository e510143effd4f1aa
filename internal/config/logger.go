package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/simp-lee/logger"
)

// SetupLogger builds the process logger from cfg and installs it as the slog
// default. Context attributes such as request_id are added to every record.
// The caller must Close the returned logger.
func SetupLogger(cfg *LogConfig) (*logger.Logger, error) {
	if cfg == nil {
		return nil, errors.New("log config is nil")
	}

	log, err := logger.New(buildLoggerOpts(cfg)...)
	if err != nil {
		return nil, err
	}
	log.SetDefault()
	return log, nil
}

func buildLoggerOpts(cfg *LogConfig) []logger.Option {
	format := logger.FormatText
	if strings.EqualFold(cfg.Format, "json") {
		format = logger.FormatJSON
	}
	color := cfg.Color == nil || *cfg.Color

	opts := []logger.Option{
		logger.WithLevel(parseLevel(cfg.Level)),
		logger.WithMiddleware(logger.ContextMiddleware()),
		logger.WithConsoleFormat(format),
		logger.WithConsoleColor(color && format == logger.FormatText),
	}
	if cfg.FilePath == "" {
		return opts
	}

	opts = append(opts,
		logger.WithFilePath(cfg.FilePath),
		logger.WithFileFormat(format),
	)
	if cfg.MaxSizeMB > 0 {
		opts = append(opts, logger.WithMaxSizeMB(cfg.MaxSizeMB))
	}
	if cfg.RetentionDays > 0 {
		opts = append(opts, logger.WithRetentionDays(cfg.RetentionDays))
	}
	if cfg.MaxBackups > 0 {
		opts = append(opts, logger.WithMaxBackups(cfg.MaxBackups))
	}
	if cfg.CompressRotated != nil {
		opts = append(opts, logger.WithCompressRotated(*cfg.CompressRotated))
	}
	return opts
}

// parseLevel maps a level name to slog. Unknown names mean Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
