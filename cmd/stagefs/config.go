package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds settings read from the environment. Command-line flags
// override them.
type Config struct {
	BaseDir       string `env:"STAGEFS_BASE_DIR" env-default:"." env-description:"directory manifest paths are relative to"`
	LogLevel      string `env:"STAGEFS_LOG_LEVEL" env-default:"warn" env-description:"debug, info, warn or error"`
	LogFormat     string `env:"STAGEFS_LOG_FORMAT" env-default:"text" env-description:"text or json"`
	LogFile       string `env:"STAGEFS_LOG_FILE" env-description:"write logs to this file instead of stderr"`
	LogMaxSize    int    `env:"STAGEFS_LOG_MAX_SIZE" env-default:"10" env-description:"log file size in megabytes before rotation"`
	LogMaxBackups int    `env:"STAGEFS_LOG_MAX_BACKUPS" env-default:"3" env-description:"rotated log files to keep"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the logger described by cfg. Logs go to stderr unless
// LogFile is set, in which case the file is rotated by size.
func NewLogger(cfg Config, stderr io.Writer) *slog.Logger {
	w := stderr
	if cfg.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
