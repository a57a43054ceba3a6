package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/maauso/mediakit/internal/pipeline"
)

// Static errors for media operations.
var (
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrEngineBusy is returned when another process holds the engine lock.
	ErrEngineBusy = errors.New("media engine is busy")
)

// FFmpegEngine implements Processor using the ffmpeg and ffprobe CLIs.
type FFmpegEngine struct {
	ffmpegPath  string
	ffprobePath string
	lock        *flock.Flock
	logger      *slog.Logger
}

// Option configures an FFmpegEngine.
type Option func(*FFmpegEngine)

// WithFFprobePath overrides the ffprobe binary. Defaults to "ffprobe".
func WithFFprobePath(path string) Option {
	return func(e *FFmpegEngine) {
		if path != "" {
			e.ffprobePath = path
		}
	}
}

// WithLockFile serializes executions across processes sharing path.
// Execute fails with ErrEngineBusy instead of waiting for the lock.
func WithLockFile(path string) Option {
	return func(e *FFmpegEngine) {
		if path != "" {
			e.lock = flock.New(path)
		}
	}
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *FFmpegEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewFFmpegEngine creates a new FFmpegEngine.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEngine(ffmpegPath string, opts ...Option) *FFmpegEngine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	e := &FFmpegEngine{
		ffmpegPath:  ffmpegPath,
		ffprobePath: "ffprobe",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Processor = (*FFmpegEngine)(nil)

// Execute renders spec to ffmpeg arguments and runs them, reporting progress
// parsed from ffmpeg's machine-readable progress stream.
func (e *FFmpegEngine) Execute(ctx context.Context, spec *pipeline.Spec, onProgress func(time.Duration)) error {
	args, err := Args(spec)
	if err != nil {
		return err
	}

	if e.lock != nil {
		locked, err := e.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire engine lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("%w: lock %s held by another process", ErrEngineBusy, e.lock.Path())
		}
		defer func() { _ = e.lock.Unlock() }()
	}

	// Progress goes to stdout as key=value blocks; stats on stderr are suppressed.
	args = append(args[:len(args):len(args)], "-progress", "pipe:1", "-nostats")

	e.logger.Debug("running ffmpeg", slog.String("kind", string(spec.Kind())), slog.Any("args", args))

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	scanErr := parseProgress(stdout, onProgress)
	// Drain whatever is left so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	if scanErr != nil {
		e.logger.Warn("ffmpeg progress stream unreadable", slog.String("error", scanErr.Error()))
	}
	return nil
}

// parseProgress reads ffmpeg -progress output and calls fn with every
// out_time_us value. Unknown keys and N/A values are ignored.
func parseProgress(r io.Reader, fn func(time.Duration)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || key != "out_time_us" || fn == nil {
			continue
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			continue
		}
		fn(time.Duration(us) * time.Microsecond)
	}
	return scanner.Err()
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// ProbeDuration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (e *FFmpegEngine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := e.runFFprobe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// ffprobeOutput mirrors the JSON printed by ffprobe -show_format -show_streams.
// Numeric format fields are printed as strings.
type ffprobeOutput struct {
	Format struct {
		Filename   string `json:"filename"`
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		Index      int    `json:"index"`
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// ProbeInfo returns format and stream metadata for a media file.
func (e *FFmpegEngine) ProbeInfo(ctx context.Context, path string) (*Info, error) {
	out, err := e.runFFprobe(ctx,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}
	return parseProbeJSON(path, out)
}

func parseProbeJSON(path string, data []byte) (*Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	info := &Info{
		Path:       path,
		FormatName: raw.Format.FormatName,
		Duration:   parseFloat(raw.Format.Duration),
		Size:       parseInt(raw.Format.Size),
		BitRate:    parseInt(raw.Format.BitRate),
		Streams:    make([]Stream, 0, len(raw.Streams)),
	}
	for _, s := range raw.Streams {
		info.Streams = append(info.Streams, Stream{
			Index:      s.Index,
			CodecType:  s.CodecType,
			CodecName:  s.CodecName,
			Width:      s.Width,
			Height:     s.Height,
			SampleRate: int(parseInt(s.SampleRate)),
			Channels:   s.Channels,
		})
	}
	return info, nil
}

func (e *FFmpegEngine) runFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
