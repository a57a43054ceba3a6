package editor

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/maauso/mediakit/internal/loudness"
	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/task"
)

// Decibel returns the overall level of the first audio stream of path in dBFS.
// Silent audio yields -Inf.
func (e *Editor) Decibel(ctx context.Context, path string) (float64, error) {
	stream, err := e.decode(ctx, path)
	if err != nil {
		return 0, err
	}
	return loudness.Decibel(stream.Samples)
}

// DecibelMedian returns the median of the per-window levels of path.
func (e *Editor) DecibelMedian(ctx context.Context, path string) (float64, error) {
	stream, err := e.decode(ctx, path)
	if err != nil {
		return 0, err
	}
	return loudness.DecibelMedian(stream, e.window)
}

// Loudness decodes path once and returns both levels.
func (e *Editor) Loudness(ctx context.Context, path string) (loudness.Stats, error) {
	stream, err := e.decode(ctx, path)
	if err != nil {
		return loudness.Stats{}, err
	}
	return loudness.Analyze(stream, e.window)
}

// DecibelRequest changes the level of a source.
type DecibelRequest struct {
	Source string `validate:"required"`
	Output string `validate:"required"`
	// Decibel is the target level in dBFS, or the change in dB when Relative is set.
	Decibel  float64 `validate:"lte=120,gte=-120"`
	Relative bool
	Publish  bool
}

// AdjustDecibel measures Source and submits a pipeline that scales its audio
// to the requested level. Any video stream is copied.
func (e *Editor) AdjustDecibel(ctx context.Context, req DecibelRequest, opts ...task.SubmitOption) (*task.Task, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	if err := checkSource(req.Source); err != nil {
		return nil, err
	}
	// Measuring decodes the whole source; skip it when admission would fail.
	if e.session.Status() != task.StatusIdle {
		return nil, task.ErrPreviousTaskNotFinished
	}
	if err := checkOutput(req.Output, req.Source); err != nil {
		return nil, err
	}

	gain := loudness.Gain(0, req.Decibel)
	if !req.Relative {
		current, err := e.Decibel(ctx, req.Source)
		if err != nil {
			return nil, err
		}
		if math.IsInf(current, -1) {
			return nil, fmt.Errorf("%w: %s", ErrSilentSource, req.Source)
		}
		gain = loudness.Gain(current, req.Decibel)
		e.logger.Debug("loudness measured",
			slog.String("path", req.Source),
			slog.Float64("decibel", current),
			slog.Float64("target", req.Decibel),
		)
	}

	spec, err := e.builder.AdjustVolume(ctx, pipeline.VolumeRequest{
		Source: req.Source,
		Output: req.Output,
		Gain:   gain,
	})
	if err != nil {
		return nil, err
	}
	return e.submit(spec, req.Publish, opts)
}

func (e *Editor) decode(ctx context.Context, path string) (loudness.Stream, error) {
	if err := checkSource(path); err != nil {
		return loudness.Stream{}, err
	}
	return e.decoder.Decode(ctx, path)
}
