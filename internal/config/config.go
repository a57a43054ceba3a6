// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
	// ErrInvalidLogFormat is returned when LOG_FORMAT is not text, json or auto.
	ErrInvalidLogFormat = errors.New("config: LOG_FORMAT must be text, json or auto")
	// ErrInvalidLoudnessWindow is returned when LOUDNESS_WINDOW_MS is not positive.
	ErrInvalidLoudnessWindow = errors.New("config: LOUDNESS_WINDOW_MS must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int   `env:"PORT, default=8080" json:"port"`
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES, default=2147483648" json:"max_upload_bytes"`

	// Media engine settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	LockFile    string `env:"LOCK_FILE" json:"lock_file,omitempty"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/mediakit" json:"temp_dir"`

	// Analysis settings
	LoudnessWindowMs   int `env:"LOUDNESS_WINDOW_MS, default=1000" json:"loudness_window_ms"`
	AnalysisSampleRate int `env:"ANALYSIS_SAMPLE_RATE, default=16000" json:"analysis_sample_rate"`

	// Task settings
	ProgressBuffer int    `env:"PROGRESS_BUFFER, default=64" json:"progress_buffer"`
	HistoryLimit   int    `env:"HISTORY_LIMIT, default=100" json:"history_limit"`
	PresetsFile    string `env:"PRESETS_FILE" json:"presets_file,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=mediakit" json:"s3_prefix"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=auto" json:"log_format"` // "json", "text" or "auto"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// LoudnessWindow returns the decibel median window as a duration.
func (c *Config) LoudnessWindow() time.Duration {
	return time.Duration(c.LoudnessWindowMs) * time.Millisecond
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "auto":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogFormat, c.LogFormat)
	}
	if c.LoudnessWindowMs <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLoudnessWindow, c.LoudnessWindowMs)
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// When it is "auto", text is used on a terminal and JSON otherwise.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is like NewLogger but writes to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	tty := false
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		tty = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return c.newLogger(w, tty)
}

func (c *Config) newLogger(w io.Writer, tty bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	format := strings.ToLower(c.LogFormat)
	if format == "auto" {
		format = "json"
		if tty {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, FFmpegPath: %s, FFprobePath: %s, TempDir: %s, LoudnessWindowMs: %d, AnalysisSampleRate: %d, ProgressBuffer: %d, HistoryLimit: %d, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.FFmpegPath,
		c.FFprobePath,
		c.TempDir,
		c.LoudnessWindowMs,
		c.AnalysisSampleRate,
		c.ProgressBuffer,
		c.HistoryLimit,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
