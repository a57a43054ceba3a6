// Package bootstrap provides dependency initialization for mediakit.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/mediakit/internal/audio"
	"github.com/maauso/mediakit/internal/config"
	"github.com/maauso/mediakit/internal/editor"
	"github.com/maauso/mediakit/internal/media"
	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/storage"
	"github.com/maauso/mediakit/internal/task"
)

// Dependencies holds all initialized dependencies for the server and CLI.
type Dependencies struct {
	Editor  *editor.Editor
	Session *task.Session
	Storage storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	presets, err := initPresets(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize media engine and sample decoder
	engine := media.NewFFmpegEngine(cfg.FFmpegPath,
		media.WithFFprobePath(cfg.FFprobePath),
		media.WithLockFile(cfg.LockFile),
		media.WithLogger(logger),
	)
	decoder := audio.NewFFmpegDecoder(cfg.FFmpegPath, cfg.AnalysisSampleRate)

	// Initialize task session
	sessionOpts := []task.Option{
		task.WithRepository(task.NewMemoryRepository()),
		task.WithCleaner(store),
		task.WithLogger(logger),
		task.WithProgressBuffer(cfg.ProgressBuffer),
		task.WithHistoryLimit(cfg.HistoryLimit),
	}
	if cfg.S3Enabled() {
		sessionOpts = append(sessionOpts, task.WithPublisher(storage.NewPublisher(store, cfg.S3Prefix)))
	}
	session := task.NewSession(engine, sessionOpts...)

	ed := editor.New(engine, decoder, session,
		editor.WithPresets(presets),
		editor.WithLoudnessWindow(cfg.LoudnessWindow()),
		editor.WithLogger(logger),
	)

	return &Dependencies{
		Editor:  ed,
		Session: session,
		Storage: store,
	}, nil
}

// initPresets loads the preset file when configured and falls back to the built-ins.
func initPresets(cfg *config.Config, logger *slog.Logger) (*preset.Catalog, error) {
	if cfg.PresetsFile == "" {
		return preset.Builtin(), nil
	}
	catalog, err := preset.Load(cfg.PresetsFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	logger.Info("presets loaded",
		slog.String("file", cfg.PresetsFile),
		slog.Any("names", catalog.Names()),
	)
	return catalog, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		bucket, err := storage.NewBucket(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return bucket, nil
	}

	disk, err := storage.NewDisk(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return disk, nil
}
