package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "/tmp/mediakit", cfg.TempDir)
	assert.Equal(t, 1000, cfg.LoudnessWindowMs)
	assert.Equal(t, time.Second, cfg.LoudnessWindow())
	assert.Equal(t, 16000, cfg.AnalysisSampleRate)
	assert.Equal(t, 64, cfg.ProgressBuffer)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, "mediakit", cfg.S3Prefix)
	assert.Equal(t, int64(2<<30), cfg.MaxUploadBytes)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := load(envconfig.MapLookuper(map[string]string{
		"PORT":                  "3000",
		"FFMPEG_PATH":           "/opt/ffmpeg/bin/ffmpeg",
		"FFPROBE_PATH":          "/opt/ffmpeg/bin/ffprobe",
		"LOCK_FILE":             "/run/mediakit.lock",
		"TEMP_DIR":              "/custom/temp",
		"LOUDNESS_WINDOW_MS":    "250",
		"ANALYSIS_SAMPLE_RATE":  "8000",
		"PROGRESS_BUFFER":       "8",
		"HISTORY_LIMIT":         "10",
		"PRESETS_FILE":          "/etc/mediakit/presets.toml",
		"S3_BUCKET":             "my-bucket",
		"S3_REGION":             "us-east-1",
		"S3_ENDPOINT":           "http://localhost:9000",
		"S3_PREFIX":             "edits",
		"AWS_ACCESS_KEY_ID":     "access-key",
		"AWS_SECRET_ACCESS_KEY": "secret-key",
		"LOG_FORMAT":            "json",
		"LOG_LEVEL":             "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", cfg.FFprobePath)
	assert.Equal(t, "/run/mediakit.lock", cfg.LockFile)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, 250*time.Millisecond, cfg.LoudnessWindow())
	assert.Equal(t, 8000, cfg.AnalysisSampleRate)
	assert.Equal(t, 8, cfg.ProgressBuffer)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, "/etc/mediakit/presets.toml", cfg.PresetsFile)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "edits", cfg.S3Prefix)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HISTORY_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.HistoryLimit)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"port not a number", map[string]string{"PORT": "not-a-number"}, nil},
		{"window not a number", map[string]string{"LOUDNESS_WINDOW_MS": "soon"}, nil},
		{"bucket without region", map[string]string{"S3_BUCKET": "b"}, ErrS3RegionRequired},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, ErrInvalidLogFormat},
		{"zero window", map[string]string{"LOUDNESS_WINDOW_MS": "0"}, ErrInvalidLoudnessWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envconfig.MapLookuper(tt.env))
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		FFmpegPath:         "ffmpeg",
		TempDir:            "/tmp/test",
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "AKIAEXAMPLE",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "bucket")
	assert.Contains(t, str, "/tmp/test")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "AKIAEXAMPLE")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{LogFormat: "json", LogLevel: "info"}

	var buf bytes.Buffer
	cfg.newLogger(&buf, true).Info("test message", slog.String("k", "v"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestConfig_NewLogger_Auto(t *testing.T) {
	cfg := &Config{LogFormat: "auto", LogLevel: "info"}

	t.Run("terminal gets text", func(t *testing.T) {
		var buf bytes.Buffer
		cfg.newLogger(&buf, true).Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("pipe gets json", func(t *testing.T) {
		var buf bytes.Buffer
		cfg.newLogger(&buf, false).Info("hello")
		assert.Contains(t, buf.String(), `"msg":"hello"`)
	})
}

func TestConfig_NewLogger_Level(t *testing.T) {
	cfg := &Config{LogFormat: "text", LogLevel: "warn"}

	var buf bytes.Buffer
	logger := cfg.newLogger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.NotNil(t, cfg.NewLogger())
}

func TestConfig_NewLoggerTo_NonFileIsNotTerminal(t *testing.T) {
	cfg := &Config{LogFormat: "auto", LogLevel: "info"}

	var buf bytes.Buffer
	cfg.NewLoggerTo(&buf).Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{LogFormat: "TEXT", LoudnessWindowMs: 1000}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bucket without region", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LoudnessWindowMs: 1000, S3Bucket: "b"}
		assert.ErrorIs(t, cfg.Validate(), ErrS3RegionRequired)
	})
}
