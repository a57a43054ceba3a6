package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/task"
	"github.com/maauso/mediakit/internal/timeline"
)

// TrimRequest cuts one range out of a source.
type TrimRequest struct {
	Source string             `validate:"required"`
	Output string             `validate:"required"`
	Begin  float64            `validate:"gte=0"`
	End    float64            `validate:"gte=0"`
	Media  pipeline.MediaType `validate:"omitempty,oneof=video audio"`
	// Publish uploads the output once the task succeeds.
	Publish bool
}

// Trim extracts [Begin, End) of Source into Output. Media defaults to video.
func (e *Editor) Trim(ctx context.Context, req TrimRequest, opts ...task.SubmitOption) (*task.Task, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	r, err := timeline.New(req.Begin, req.End)
	if err != nil {
		return nil, err
	}
	if err := checkSource(req.Source); err != nil {
		return nil, err
	}
	if err := checkOutput(req.Output, req.Source); err != nil {
		return nil, err
	}

	spec, err := e.builder.Trim(ctx, pipeline.TrimRequest{
		Source: req.Source,
		Output: req.Output,
		Range:  r,
		Media:  mediaOrDefault(req.Media, pipeline.MediaVideo),
	})
	if err != nil {
		return nil, err
	}
	return e.submit(spec, req.Publish, opts)
}

// Segment is one entry of a batch cut.
type Segment struct {
	Index string
	Begin float64
	End   float64
}

// CutRequest cuts several segments of one source into OutputDir, naming
// each output <source base>_<Index><source ext>.
type CutRequest struct {
	Source    string             `validate:"required"`
	OutputDir string             `validate:"required"`
	Segments  []Segment          `validate:"required,min=1"`
	Media     pipeline.MediaType `validate:"omitempty,oneof=video audio"`
	Publish   bool
}

// CutResult is the outcome of admitting a batch cut.
type CutResult struct {
	// Task runs every valid segment.
	Task *task.Task
	// Skipped lists the segments rejected during validation.
	Skipped []*pipeline.SegmentError
}

// CutAudio cuts every valid segment as one task. Invalid segments are
// skipped and reported; the call fails only if none is valid. Media
// defaults to audio.
func (e *Editor) CutAudio(ctx context.Context, req CutRequest, opts ...task.SubmitOption) (*CutResult, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	if err := checkSource(req.Source); err != nil {
		return nil, err
	}
	if err := checkDir(req.OutputDir); err != nil {
		return nil, err
	}

	segments := make([]pipeline.Segment, len(req.Segments))
	for i, s := range req.Segments {
		segments[i] = pipeline.Segment{Index: s.Index, Begin: s.Begin, End: s.End}
	}
	plan, err := e.builder.BatchCut(ctx, pipeline.BatchCutRequest{
		Source:    req.Source,
		OutputDir: req.OutputDir,
		Segments:  segments,
		Media:     mediaOrDefault(req.Media, pipeline.MediaAudio),
	})
	if err != nil {
		return nil, err
	}
	if len(plan.Specs) == 0 {
		errs := make([]error, len(plan.Skipped))
		for i, s := range plan.Skipped {
			errs[i] = s
		}
		return nil, fmt.Errorf("%w: %w", ErrNoValidSegments, errors.Join(errs...))
	}
	for _, s := range plan.Specs {
		if err := checkOutput(s.OutputPaths()[0], req.Source); err != nil {
			return nil, err
		}
	}

	if req.Publish {
		opts = append(opts, task.WithPublish())
	}
	t, err := e.session.SubmitBatch(plan.Specs, opts...)
	if err != nil {
		return nil, err
	}
	return &CutResult{Task: t, Skipped: plan.Skipped}, nil
}

// Clip is one part of a composite.
type Clip struct {
	Source string `validate:"required"`
	Begin  float64
	End    float64
}

// CompositeRequest joins clips back to back.
type CompositeRequest struct {
	Clips   []Clip             `validate:"required,min=1,dive"`
	Output  string             `validate:"required"`
	Media   pipeline.MediaType `validate:"omitempty,oneof=video audio"`
	Publish bool
}

// Composite concatenates the clips in list order. Media defaults to audio.
func (e *Editor) Composite(ctx context.Context, req CompositeRequest, opts ...task.SubmitOption) (*task.Task, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}

	clips := make([]pipeline.Clip, len(req.Clips))
	sources := make([]string, len(req.Clips))
	for i, c := range req.Clips {
		r, err := timeline.New(c.Begin, c.End)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		if err := checkSource(c.Source); err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		clips[i] = pipeline.Clip{Source: c.Source, Range: r}
		sources[i] = c.Source
	}
	if err := checkOutput(req.Output, sources...); err != nil {
		return nil, err
	}

	spec, err := e.builder.Composite(ctx, pipeline.CompositeRequest{
		Clips:  clips,
		Output: req.Output,
		Media:  mediaOrDefault(req.Media, pipeline.MediaAudio),
	})
	if err != nil {
		return nil, err
	}
	return e.submit(spec, req.Publish, opts)
}

// Overlay is one image drawn over the video between Begin and End.
type Overlay struct {
	Image string `validate:"required"`
	X     int    `validate:"gte=0"`
	Y     int    `validate:"gte=0"`
	Begin float64
	End   float64
}

// WatermarkRequest draws images onto a video.
type WatermarkRequest struct {
	Source   string    `validate:"required"`
	Output   string    `validate:"required"`
	Overlays []Overlay `validate:"required,min=1,dive"`
	Publish  bool
}

// Watermark draws the overlays onto Source. Later overlays are drawn on
// top of earlier ones.
func (e *Editor) Watermark(ctx context.Context, req WatermarkRequest, opts ...task.SubmitOption) (*task.Task, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	if err := checkSource(req.Source); err != nil {
		return nil, err
	}

	overlays := make([]pipeline.Overlay, len(req.Overlays))
	for i, o := range req.Overlays {
		r, err := timeline.New(o.Begin, o.End)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i, err)
		}
		if err := checkSource(o.Image); err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i, err)
		}
		overlays[i] = pipeline.Overlay{Image: o.Image, X: o.X, Y: o.Y, Active: r}
	}
	if err := checkOutput(req.Output, req.Source); err != nil {
		return nil, err
	}

	spec, err := e.builder.Watermark(ctx, pipeline.WatermarkRequest{
		Source:   req.Source,
		Output:   req.Output,
		Overlays: overlays,
	})
	if err != nil {
		return nil, err
	}
	return e.submit(spec, req.Publish, opts)
}

// SnapshotRequest samples FPS stills per second from Start for Duration seconds.
type SnapshotRequest struct {
	Source   string  `validate:"required"`
	Dir      string  `validate:"required"`
	Prefix   string  `validate:"excludesall=/\\"`
	Start    float64 `validate:"gte=0"`
	FPS      int     `validate:"required,min=1"`
	Duration float64 `validate:"gt=0"`
	Quality  int     `validate:"omitempty,min=1,max=5"`
	Publish  bool
}

// Snapshot writes stills named Prefix followed by a 4-digit sequence number
// into Dir.
func (e *Editor) Snapshot(ctx context.Context, req SnapshotRequest, opts ...task.SubmitOption) (*task.Task, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	if err := checkSource(req.Source); err != nil {
		return nil, err
	}
	if err := checkDir(req.Dir); err != nil {
		return nil, err
	}

	spec, err := e.builder.Snapshot(ctx, pipeline.SnapshotRequest{
		Source:   req.Source,
		Start:    req.Start,
		FPS:      req.FPS,
		Duration: req.Duration,
		Dir:      req.Dir,
		Prefix:   req.Prefix,
		Quality:  req.Quality,
	})
	if err != nil {
		return nil, err
	}
	return e.submit(spec, req.Publish, opts)
}

// ConvertRequest re-encodes a source with a named preset.
type ConvertRequest struct {
	Source  string `validate:"required"`
	Output  string `validate:"required"`
	Preset  string `validate:"required"`
	Publish bool
}

// Convert re-encodes Source to Output using the named preset.
func (e *Editor) Convert(ctx context.Context, req ConvertRequest, opts ...task.SubmitOption) (*task.Task, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	target, err := e.presets.Get(req.Preset)
	if err != nil {
		return nil, err
	}
	if err := checkSource(req.Source); err != nil {
		return nil, err
	}
	if err := checkOutput(req.Output, req.Source); err != nil {
		return nil, err
	}

	spec, err := e.builder.Convert(ctx, pipeline.ConvertRequest{
		Source: req.Source,
		Output: req.Output,
		Target: target,
	})
	if err != nil {
		return nil, err
	}
	return e.submit(spec, req.Publish, opts)
}

// FileRequest names a source and an output for single-file presets.
type FileRequest struct {
	Source  string
	Output  string
	Publish bool
}

// Compress re-encodes a video to a smaller H.264 file.
func (e *Editor) Compress(ctx context.Context, req FileRequest, opts ...task.SubmitOption) (*task.Task, error) {
	return e.Convert(ctx, req.with(preset.Compress), opts...)
}

// ExtractSubtitleAudio extracts 16 kHz mono audio suited to speech recognition.
func (e *Editor) ExtractSubtitleAudio(ctx context.Context, req FileRequest, opts ...task.SubmitOption) (*task.Task, error) {
	return e.Convert(ctx, req.with(preset.SubtitleAudio), opts...)
}

// ConvertAudio re-encodes audio to AAC.
func (e *Editor) ConvertAudio(ctx context.Context, req FileRequest, opts ...task.SubmitOption) (*task.Task, error) {
	return e.Convert(ctx, req.with(preset.AAC), opts...)
}

func (r FileRequest) with(name string) ConvertRequest {
	return ConvertRequest{Source: r.Source, Output: r.Output, Preset: name, Publish: r.Publish}
}

func mediaOrDefault(m, def pipeline.MediaType) pipeline.MediaType {
	if m == "" {
		return def
	}
	return m
}
