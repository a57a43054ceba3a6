// Package editor is the caller-facing media editing surface. Each operation
// validates its request, checks paths, builds a pipeline and submits it to
// the task session. Validation and admission errors are returned
// synchronously; everything else arrives through the returned task.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediakit/internal/audio"
	"github.com/maauso/mediakit/internal/loudness"
	"github.com/maauso/mediakit/internal/media"
	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/task"
)

// Static errors for editor operations.
var (
	// ErrInvalidPath is returned for an unreadable source or an unwritable destination.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidRequest is returned when a request fails field validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoValidSegments is returned when every segment of a batch cut was rejected.
	ErrNoValidSegments = errors.New("no valid segments")
	// ErrSilentSource is returned when a level change is requested for silent audio.
	ErrSilentSource = errors.New("source audio is silent")
)

// State is the synchronous status code of an editor operation.
type State int

const (
	// Success means the request was accepted.
	Success State = 0
	// Error means the request was rejected for any reason not listed below.
	Error State = 1
	// ErrorPath means a source or destination path was unusable.
	ErrorPath State = 2
	// PreviousTaskNotFinish means another task is still active.
	PreviousTaskNotFinish State = 3
)

func (s State) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case ErrorPath:
		return "ERROR_PATH"
	case PreviousTaskNotFinish:
		return "PREVIOUS_TASK_NOT_FINISH"
	default:
		return "ERROR"
	}
}

// StateOf maps an operation error to its status code.
func StateOf(err error) State {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, task.ErrPreviousTaskNotFinished):
		return PreviousTaskNotFinish
	case errors.Is(err, ErrInvalidPath):
		return ErrorPath
	default:
		return Error
	}
}

// Engine is the probing side of the media engine used by the editor.
type Engine interface {
	pipeline.Prober
	ProbeInfo(ctx context.Context, path string) (*media.Info, error)
}

// Editor implements the media editing operations.
type Editor struct {
	engine   Engine
	decoder  audio.Decoder
	session  *task.Session
	builder  *pipeline.Builder
	presets  *preset.Catalog
	validate *validator.Validate
	window   time.Duration
	logger   *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithPresets sets the conversion preset catalog. Defaults to the built-ins.
func WithPresets(c *preset.Catalog) Option {
	return func(e *Editor) {
		if c != nil {
			e.presets = c
		}
	}
}

// WithLoudnessWindow sets the window used for decibel medians.
func WithLoudnessWindow(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithLogger sets the editor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Editor running pipelines on session.
func New(engine Engine, decoder audio.Decoder, session *task.Session, opts ...Option) *Editor {
	e := &Editor{
		engine:   engine,
		decoder:  decoder,
		session:  session,
		builder:  pipeline.NewBuilder(engine),
		presets:  preset.Builtin(),
		validate: validator.New(),
		window:   loudness.DefaultWindow,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Presets returns the conversion preset catalog.
func (e *Editor) Presets() *preset.Catalog {
	return e.presets
}

// Status returns the admission state of the underlying session.
func (e *Editor) Status() task.Status {
	return e.session.Status()
}

// Cancel requests termination of whichever task is active.
func (e *Editor) Cancel() {
	e.session.CancelActive()
}

// CancelTask requests termination of the task with the given handle.
func (e *Editor) CancelTask(handle string) error {
	return e.session.Cancel(handle)
}

// Task returns the record of a submitted task.
func (e *Editor) Task(ctx context.Context, handle string) (*task.Record, error) {
	return e.session.Record(ctx, handle)
}

// Tasks returns every retained task record, oldest first.
func (e *Editor) Tasks(ctx context.Context) ([]*task.Record, error) {
	return e.session.Records(ctx)
}

// Info returns container and stream metadata of a media file.
func (e *Editor) Info(ctx context.Context, path string) (*media.Info, error) {
	if err := checkSource(path); err != nil {
		return nil, err
	}
	return e.engine.ProbeInfo(ctx, path)
}

func (e *Editor) check(req any) error {
	if err := e.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func (e *Editor) submit(spec *pipeline.Spec, publish bool, opts []task.SubmitOption) (*task.Task, error) {
	if publish {
		opts = append(opts, task.WithPublish())
	}
	t, err := e.session.Submit(spec, opts...)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("pipeline submitted",
		slog.String("task_id", t.ID()),
		slog.String("kind", string(spec.Kind())),
		slog.Any("outputs", spec.OutputPaths()),
	)
	return t, nil
}

// checkSource requires path to name an existing regular file.
func checkSource(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty source path", ErrInvalidPath)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidPath, path)
	}
	return nil
}

// checkOutput requires the parent directory of path to exist or be
// creatable, and path itself not to be a directory or one of sources.
func checkOutput(path string, sources ...string) error {
	if path == "" {
		return fmt.Errorf("%w: empty output path", ErrInvalidPath)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	for _, src := range sources {
		if srcAbs, err := filepath.Abs(src); err == nil && srcAbs == abs {
			return fmt.Errorf("%w: output %s overwrites its source", ErrInvalidPath, path)
		}
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: output %s is a directory", ErrInvalidPath, path)
	}
	return checkDir(filepath.Dir(path))
}

// checkDir creates dir if needed and requires it to be a directory.
func checkDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty directory", ErrInvalidPath)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return nil
}
