package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/timeline"
)

// Static errors for pipeline construction.
var (
	// ErrNoClips is returned when a composite request has no clips.
	ErrNoClips = errors.New("composite requires at least one clip")
	// ErrNoOverlays is returned when a watermark request has no overlays.
	ErrNoOverlays = errors.New("watermark requires at least one overlay")
	// ErrNoSegments is returned when a batch cut request has no segments.
	ErrNoSegments = errors.New("batch cut requires at least one segment")
	// ErrInvalidSegment is returned for a segment whose index cannot name a file.
	ErrInvalidSegment = errors.New("invalid segment index")
	// ErrInvalidSnapshot is returned when snapshot parameters are out of range.
	ErrInvalidSnapshot = errors.New("invalid snapshot parameters")
	// ErrInvalidMediaType is returned when a request names an unknown media type.
	ErrInvalidMediaType = errors.New("invalid media type")
)

// DefaultSnapshotQuality is used when a snapshot request leaves Quality unset.
const DefaultSnapshotQuality = 2

// snapshotExt is the extension of extracted stills.
const snapshotExt = ".jpg"

// SnapshotEndMargin is how far before the source end a still at the exact
// end is taken. The last decodable frame starts one frame interval before
// the container duration; the margin covers sources down to 10 fps.
const SnapshotEndMargin = 0.1

// Prober reports the duration of a media file in seconds.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Builder constructs Specs. Its only dependency is the Prober used to check
// requested ranges against the source duration.
type Builder struct {
	probe Prober
}

// NewBuilder creates a Builder that validates ranges with p.
func NewBuilder(p Prober) *Builder {
	return &Builder{probe: p}
}

// TrimRequest extracts one range of a source into a new file.
type TrimRequest struct {
	Source string
	Output string
	Range  timeline.Range
	Media  MediaType
}

// Trim builds a single-range extraction.
func (b *Builder) Trim(ctx context.Context, req TrimRequest) (*Spec, error) {
	if err := checkMedia(req.Media); err != nil {
		return nil, err
	}
	duration, err := b.duration(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	if err := checkWithin(req.Range, duration, req.Source); err != nil {
		return nil, err
	}
	return trimSpec(KindTrim, req.Source, req.Output, req.Range, req.Media), nil
}

// Segment is one entry of a batch cut. Bounds are raw seconds so that a
// malformed entry can be reported individually instead of failing the batch.
type Segment struct {
	Index string
	Begin float64
	End   float64
}

// BatchCutRequest cuts several independent segments out of one source.
type BatchCutRequest struct {
	Source    string
	OutputDir string
	Segments  []Segment
	Media     MediaType
}

// SegmentError reports why one segment of a batch was skipped.
type SegmentError struct {
	Index string
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %s: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// BatchPlan is the result of BatchCut: one spec per valid segment, in
// request order, plus the segments that were rejected.
type BatchPlan struct {
	Specs   []*Spec
	Skipped []*SegmentError
}

// BatchCut builds one independent spec per segment. Segments may overlap
// or repeat an index; each is checked only against the source duration.
// Invalid segments are skipped and reported in the plan. An error is
// returned only when the request as a whole cannot be processed.
func (b *Builder) BatchCut(ctx context.Context, req BatchCutRequest) (*BatchPlan, error) {
	if len(req.Segments) == 0 {
		return nil, ErrNoSegments
	}
	if err := checkMedia(req.Media); err != nil {
		return nil, err
	}
	duration, err := b.duration(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(req.Source)
	base := strings.TrimSuffix(filepath.Base(req.Source), ext)

	plan := &BatchPlan{}
	for _, seg := range req.Segments {
		if seg.Index == "" || strings.ContainsAny(seg.Index, `/\`) || seg.Index == "." || seg.Index == ".." {
			plan.Skipped = append(plan.Skipped, &SegmentError{Index: seg.Index, Err: ErrInvalidSegment})
			continue
		}
		r, err := timeline.New(seg.Begin, seg.End)
		if err == nil {
			err = checkWithin(r, duration, req.Source)
		}
		if err != nil {
			plan.Skipped = append(plan.Skipped, &SegmentError{Index: seg.Index, Err: err})
			continue
		}
		output := filepath.Join(req.OutputDir, base+"_"+seg.Index+ext)
		plan.Specs = append(plan.Specs, trimSpec(KindCut, req.Source, output, r, req.Media))
	}
	return plan, nil
}

// Clip is one (source, range) pair of a composite.
type Clip struct {
	Source string
	Range  timeline.Range
}

// CompositeRequest concatenates clips in list order.
type CompositeRequest struct {
	Clips  []Clip
	Output string
	Media  MediaType
}

// Composite builds a spec that places the clips back to back. The output
// duration is the sum of the clip durations.
func (b *Builder) Composite(ctx context.Context, req CompositeRequest) (*Spec, error) {
	if len(req.Clips) == 0 {
		return nil, ErrNoClips
	}
	if err := checkMedia(req.Media); err != nil {
		return nil, err
	}

	durations := make(map[string]float64)
	spec := &Spec{kind: KindComposite, media: req.Media}
	for i, clip := range req.Clips {
		d, ok := durations[clip.Source]
		if !ok {
			var err error
			if d, err = b.duration(ctx, clip.Source); err != nil {
				return nil, err
			}
			durations[clip.Source] = d
		}
		if err := checkWithin(clip.Range, d, clip.Source); err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		spec.inputs = append(spec.inputs, Input{Path: clip.Source})
		spec.steps = append(spec.steps, Step{Kind: StepExtract, Input: i, Range: clip.Range})
		spec.duration += clip.Range.Duration()
	}
	spec.steps = append(spec.steps, Step{Kind: StepConcat})
	spec.outputs = []Output{{Path: req.Output}}
	return spec, nil
}

// Overlay is one image drawn over the base video while Active.
type Overlay struct {
	Image  string
	X, Y   int
	Active timeline.Range
}

// WatermarkRequest draws overlays onto a base video.
type WatermarkRequest struct {
	Source   string
	Output   string
	Overlays []Overlay
}

// Watermark builds one overlay step per item in list order, so later items
// are drawn on top of earlier ones where their active ranges overlap.
func (b *Builder) Watermark(ctx context.Context, req WatermarkRequest) (*Spec, error) {
	if len(req.Overlays) == 0 {
		return nil, ErrNoOverlays
	}
	duration, err := b.duration(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	spec := &Spec{
		kind:     KindWatermark,
		media:    MediaVideo,
		inputs:   []Input{{Path: req.Source}},
		duration: duration,
	}
	for i, ov := range req.Overlays {
		if err := checkWithin(ov.Active, duration, req.Source); err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i, err)
		}
		spec.inputs = append(spec.inputs, Input{Path: ov.Image})
		spec.steps = append(spec.steps, Step{
			Kind:  StepOverlay,
			Input: i + 1,
			Range: ov.Active,
			X:     ov.X,
			Y:     ov.Y,
		})
	}
	spec.outputs = []Output{{Path: req.Output}}
	return spec, nil
}

// SnapshotRequest samples still images from a video.
type SnapshotRequest struct {
	Source   string
	Start    float64
	FPS      int
	Duration float64
	Dir      string
	Prefix   string
	// Quality ranges from 1 (best) to 5. Zero selects DefaultSnapshotQuality.
	Quality int
}

// Snapshot emits one still per instant Start + k/FPS for k = 1..N where
// N = floor(Duration*FPS). The instant at k = 0 is skipped: it decodes to
// the same picture as k = 1 and would produce a duplicate first image.
// Files are named Prefix followed by the 4-digit sequence number k.
func (b *Builder) Snapshot(ctx context.Context, req SnapshotRequest) (*Spec, error) {
	quality := req.Quality
	if quality == 0 {
		quality = DefaultSnapshotQuality
	}
	switch {
	case req.FPS <= 0:
		return nil, fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidSnapshot, req.FPS)
	case quality < 1 || quality > 5:
		return nil, fmt.Errorf("%w: quality must be 1-5, got %d", ErrInvalidSnapshot, quality)
	case req.Start < 0 || math.IsNaN(req.Start) || math.IsInf(req.Start, 0):
		return nil, fmt.Errorf("%w: start %v", timeline.ErrInvalidRange, req.Start)
	}

	count := int(math.Floor(req.Duration*float64(req.FPS) + 1e-9))
	if count < 1 {
		return nil, fmt.Errorf("%w: duration %.3fs at %d fps yields no frames", timeline.ErrInvalidRange, req.Duration, req.FPS)
	}

	duration, err := b.duration(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	last := req.Start + float64(count)/float64(req.FPS)
	if last > duration {
		return nil, fmt.Errorf("%w: last frame at %.3fs exceeds %s duration %.3fs", timeline.ErrInvalidRange, last, req.Source, duration)
	}

	spec := &Spec{kind: KindSnapshot, media: MediaVideo, duration: last - req.Start}
	for k := 1; k <= count; k++ {
		at := req.Start + float64(k)/float64(req.FPS)
		spec.inputs = append(spec.inputs, Input{Path: req.Source, Seek: snapshotSeek(at, duration)})
		spec.outputs = append(spec.outputs, Output{
			Path:    filepath.Join(req.Dir, SnapshotName(req.Prefix, k)),
			Quality: quality,
		})
		spec.steps = append(spec.steps, Step{Kind: StepFrame, Input: k - 1, Output: k - 1, At: at})
	}
	return spec, nil
}

// snapshotSeek keeps a seek inside the last frame of the source.
func snapshotSeek(at, duration float64) float64 {
	if limit := duration - SnapshotEndMargin; at > limit {
		return math.Max(limit, 0)
	}
	return at
}

// SnapshotName returns the file name of the k-th still.
func SnapshotName(prefix string, k int) string {
	return fmt.Sprintf("%s%04d%s", prefix, k, snapshotExt)
}

// ConvertRequest re-encodes a source to a target codec/container.
type ConvertRequest struct {
	Source string
	Output string
	Target preset.Target
}

// Convert builds a single re-encode step.
func (b *Builder) Convert(ctx context.Context, req ConvertRequest) (*Spec, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}
	duration, err := b.duration(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	media := MediaVideo
	if req.Target.NoVideo {
		media = MediaAudio
	}
	return &Spec{
		kind:     KindConvert,
		media:    media,
		inputs:   []Input{{Path: req.Source}},
		steps:    []Step{{Kind: StepEncode, Target: req.Target}},
		outputs:  []Output{{Path: req.Output}},
		duration: duration,
	}, nil
}

// VolumeRequest scales the audio of a source by a linear gain.
type VolumeRequest struct {
	Source string
	Output string
	Gain   float64
}

// AdjustVolume builds a spec that re-encodes audio scaled by Gain and
// copies any video stream unchanged.
func (b *Builder) AdjustVolume(ctx context.Context, req VolumeRequest) (*Spec, error) {
	if req.Gain < 0 || math.IsNaN(req.Gain) || math.IsInf(req.Gain, 0) {
		return nil, fmt.Errorf("invalid gain %v", req.Gain)
	}
	duration, err := b.duration(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	return &Spec{
		kind:     KindVolume,
		media:    MediaVideo,
		inputs:   []Input{{Path: req.Source}},
		steps:    []Step{{Kind: StepVolume, Gain: req.Gain}},
		outputs:  []Output{{Path: req.Output}},
		duration: duration,
	}, nil
}

func (b *Builder) duration(ctx context.Context, path string) (float64, error) {
	d, err := b.probe.ProbeDuration(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return d, nil
}

func trimSpec(kind Kind, source, output string, r timeline.Range, media MediaType) *Spec {
	return &Spec{
		kind:     kind,
		media:    media,
		inputs:   []Input{{Path: source}},
		steps:    []Step{{Kind: StepExtract, Input: 0, Range: r}},
		outputs:  []Output{{Path: output}},
		duration: r.Duration(),
	}
}

func checkWithin(r timeline.Range, duration float64, source string) error {
	if r.IsZero() {
		return fmt.Errorf("%w: range is unset", timeline.ErrInvalidRange)
	}
	if !r.Within(duration) {
		return fmt.Errorf("%w: %s exceeds %s duration %.3fs", timeline.ErrInvalidRange, r, source, duration)
	}
	return nil
}

func checkMedia(m MediaType) error {
	if !m.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMediaType, m)
	}
	return nil
}
