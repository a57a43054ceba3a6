package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediakit/internal/preset"
	"github.com/maauso/mediakit/internal/timeline"
)

// fakeProber returns fixed durations per path.
type fakeProber struct {
	durations map[string]float64
	calls     int
}

func (f *fakeProber) ProbeDuration(_ context.Context, path string) (float64, error) {
	f.calls++
	d, ok := f.durations[path]
	if !ok {
		return 0, errors.New("no such file")
	}
	return d, nil
}

func newTestBuilder() (*Builder, *fakeProber) {
	p := &fakeProber{durations: map[string]float64{
		"a.mp4":    10,
		"b.mp4":    4,
		"song.m4a": 60,
	}}
	return NewBuilder(p), p
}

func TestTrim(t *testing.T) {
	b, _ := newTestBuilder()
	ctx := context.Background()

	t.Run("valid range", func(t *testing.T) {
		spec, err := b.Trim(ctx, TrimRequest{
			Source: "a.mp4",
			Output: "out.mp4",
			Range:  timeline.MustNew(1.3, 3.0),
			Media:  MediaVideo,
		})
		require.NoError(t, err)

		assert.Equal(t, KindTrim, spec.Kind())
		assert.Equal(t, []Input{{Path: "a.mp4"}}, spec.Inputs())
		require.Len(t, spec.Steps(), 1)
		assert.Equal(t, StepExtract, spec.Steps()[0].Kind)
		assert.Equal(t, timeline.MustNew(1.3, 3.0), spec.Steps()[0].Range)
		assert.Equal(t, []string{"out.mp4"}, spec.OutputPaths())
		assert.InDelta(t, 1.7, spec.Duration(), 1e-9)
	})

	t.Run("range up to the end is allowed", func(t *testing.T) {
		_, err := b.Trim(ctx, TrimRequest{Source: "a.mp4", Output: "o.mp4", Range: timeline.MustNew(5, 10), Media: MediaAudio})
		assert.NoError(t, err)
	})

	t.Run("range past source duration", func(t *testing.T) {
		_, err := b.Trim(ctx, TrimRequest{Source: "a.mp4", Output: "o.mp4", Range: timeline.MustNew(5, 11), Media: MediaVideo})
		assert.ErrorIs(t, err, timeline.ErrInvalidRange)
	})

	t.Run("zero range", func(t *testing.T) {
		_, err := b.Trim(ctx, TrimRequest{Source: "a.mp4", Output: "o.mp4", Media: MediaVideo})
		assert.ErrorIs(t, err, timeline.ErrInvalidRange)
	})

	t.Run("probe failure", func(t *testing.T) {
		_, err := b.Trim(ctx, TrimRequest{Source: "missing.mp4", Output: "o.mp4", Range: timeline.MustNew(0, 1), Media: MediaVideo})
		require.Error(t, err)
		assert.NotErrorIs(t, err, timeline.ErrInvalidRange)
	})

	t.Run("unknown media type", func(t *testing.T) {
		_, err := b.Trim(ctx, TrimRequest{Source: "a.mp4", Output: "o.mp4", Range: timeline.MustNew(0, 1), Media: "image"})
		assert.ErrorIs(t, err, ErrInvalidMediaType)
	})
}

func TestBatchCut_PartialSuccess(t *testing.T) {
	b, p := newTestBuilder()

	plan, err := b.BatchCut(context.Background(), BatchCutRequest{
		Source:    "a.mp4",
		OutputDir: "/out",
		Media:     MediaAudio,
		Segments: []Segment{
			{Index: "1", Begin: 0, End: 2},
			{Index: "2", Begin: 5, End: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls, "source probed once per batch")

	require.Len(t, plan.Specs, 1)
	assert.Equal(t, KindCut, plan.Specs[0].Kind())
	assert.Equal(t, []string{filepath.Join("/out", "a_1.mp4")}, plan.Specs[0].OutputPaths())

	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "2", plan.Skipped[0].Index)
	assert.ErrorIs(t, plan.Skipped[0], timeline.ErrInvalidRange)
}

func TestBatchCut_OverlapsAndDuplicatesAllowed(t *testing.T) {
	b, _ := newTestBuilder()

	plan, err := b.BatchCut(context.Background(), BatchCutRequest{
		Source:    "song.m4a",
		OutputDir: "dir",
		Media:     MediaAudio,
		Segments: []Segment{
			{Index: "x", Begin: 0, End: 10},
			{Index: "x", Begin: 5, End: 15},
			{Index: "y", Begin: 50, End: 61},
			{Index: "../z", Begin: 0, End: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, plan.Specs, 2)
	assert.Equal(t, plan.Specs[0].OutputPaths(), plan.Specs[1].OutputPaths())

	require.Len(t, plan.Skipped, 2)
	assert.ErrorIs(t, plan.Skipped[0], timeline.ErrInvalidRange)
	assert.ErrorIs(t, plan.Skipped[1], ErrInvalidSegment)
}

func TestBatchCut_Errors(t *testing.T) {
	b, _ := newTestBuilder()
	ctx := context.Background()

	_, err := b.BatchCut(ctx, BatchCutRequest{Source: "a.mp4", Media: MediaAudio})
	assert.ErrorIs(t, err, ErrNoSegments)

	_, err = b.BatchCut(ctx, BatchCutRequest{Source: "missing", Media: MediaAudio, Segments: []Segment{{Index: "1", Begin: 0, End: 1}}})
	assert.Error(t, err)
}

func TestComposite(t *testing.T) {
	b, p := newTestBuilder()

	spec, err := b.Composite(context.Background(), CompositeRequest{
		Output: "joined.m4a",
		Media:  MediaAudio,
		Clips: []Clip{
			{Source: "a.mp4", Range: timeline.MustNew(0, 2)},
			{Source: "b.mp4", Range: timeline.MustNew(1, 4)},
			{Source: "a.mp4", Range: timeline.MustNew(8, 9.5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls, "each distinct source probed once")

	assert.Equal(t, KindComposite, spec.Kind())
	assert.InDelta(t, 6.5, spec.Duration(), 1e-9)

	inputs := spec.Inputs()
	require.Len(t, inputs, 3)
	assert.Equal(t, "a.mp4", inputs[0].Path)
	assert.Equal(t, "b.mp4", inputs[1].Path)
	assert.Equal(t, "a.mp4", inputs[2].Path)

	steps := spec.Steps()
	require.Len(t, steps, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, StepExtract, steps[i].Kind)
		assert.Equal(t, i, steps[i].Input, "clips keep list order")
	}
	assert.Equal(t, StepConcat, steps[3].Kind)
}

func TestComposite_Errors(t *testing.T) {
	b, _ := newTestBuilder()
	ctx := context.Background()

	_, err := b.Composite(ctx, CompositeRequest{Output: "o", Media: MediaAudio})
	assert.ErrorIs(t, err, ErrNoClips)

	_, err = b.Composite(ctx, CompositeRequest{
		Output: "o",
		Media:  MediaVideo,
		Clips:  []Clip{{Source: "b.mp4", Range: timeline.MustNew(3, 5)}},
	})
	assert.ErrorIs(t, err, timeline.ErrInvalidRange)
}

func TestWatermark(t *testing.T) {
	b, _ := newTestBuilder()

	spec, err := b.Watermark(context.Background(), WatermarkRequest{
		Source: "a.mp4",
		Output: "wm.mp4",
		Overlays: []Overlay{
			{Image: "logo.png", X: 10, Y: 20, Active: timeline.MustNew(0, 5)},
			{Image: "badge.png", X: 30, Y: 40, Active: timeline.MustNew(2, 10)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, KindWatermark, spec.Kind())
	assert.InDelta(t, 10, spec.Duration(), 1e-9)
	assert.Equal(t, []Input{{Path: "a.mp4"}, {Path: "logo.png"}, {Path: "badge.png"}}, spec.Inputs())

	steps := spec.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, Step{Kind: StepOverlay, Input: 1, X: 10, Y: 20, Range: timeline.MustNew(0, 5)}, steps[0])
	assert.Equal(t, Step{Kind: StepOverlay, Input: 2, X: 30, Y: 40, Range: timeline.MustNew(2, 10)}, steps[1])
}

func TestWatermark_Errors(t *testing.T) {
	b, _ := newTestBuilder()
	ctx := context.Background()

	_, err := b.Watermark(ctx, WatermarkRequest{Source: "a.mp4", Output: "o"})
	assert.ErrorIs(t, err, ErrNoOverlays)

	_, err = b.Watermark(ctx, WatermarkRequest{
		Source:   "a.mp4",
		Output:   "o",
		Overlays: []Overlay{{Image: "i.png", Active: timeline.MustNew(9, 10.5)}},
	})
	assert.ErrorIs(t, err, timeline.ErrInvalidRange)
}

func TestSnapshot_SkipsFirstInstant(t *testing.T) {
	b, _ := newTestBuilder()

	spec, err := b.Snapshot(context.Background(), SnapshotRequest{
		Source:   "b.mp4",
		Start:    0,
		FPS:      2,
		Duration: 2,
		Dir:      "/shots",
		Prefix:   "img_",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("/shots", "img_0001.jpg"),
		filepath.Join("/shots", "img_0002.jpg"),
		filepath.Join("/shots", "img_0003.jpg"),
		filepath.Join("/shots", "img_0004.jpg"),
	}, spec.OutputPaths())

	steps := spec.Steps()
	require.Len(t, steps, 4)
	wantAt := []float64{0.5, 1.0, 1.5, 2.0}
	for i, step := range steps {
		assert.Equal(t, StepFrame, step.Kind)
		assert.InDelta(t, wantAt[i], step.At, 1e-9)
		assert.InDelta(t, wantAt[i], spec.Inputs()[step.Input].Seek, 1e-9)
		assert.Equal(t, i, step.Output)
	}
	for _, out := range spec.Outputs() {
		assert.Equal(t, DefaultSnapshotQuality, out.Quality)
	}
}

func TestSnapshot_ClampsSeekAtSourceEnd(t *testing.T) {
	b, _ := newTestBuilder()

	// b.mp4 is 4s long, so the fourth instant lands exactly on its end.
	spec, err := b.Snapshot(context.Background(), SnapshotRequest{
		Source:   "b.mp4",
		Start:    2,
		FPS:      2,
		Duration: 2,
	})
	require.NoError(t, err)
	require.Len(t, spec.OutputPaths(), 4)

	steps := spec.Steps()
	require.Len(t, steps, 4)
	assert.InDelta(t, 4.0, steps[3].At, 1e-9)
	assert.InDelta(t, 4.0-SnapshotEndMargin, spec.Inputs()[3].Seek, 1e-9)
	assert.InDelta(t, 3.5, spec.Inputs()[2].Seek, 1e-9)
}

func TestSnapshot_Errors(t *testing.T) {
	b, _ := newTestBuilder()
	ctx := context.Background()

	tests := []struct {
		name string
		req  SnapshotRequest
		want error
	}{
		{"zero fps", SnapshotRequest{Source: "a.mp4", FPS: 0, Duration: 1}, ErrInvalidSnapshot},
		{"bad quality", SnapshotRequest{Source: "a.mp4", FPS: 1, Duration: 1, Quality: 9}, ErrInvalidSnapshot},
		{"negative start", SnapshotRequest{Source: "a.mp4", FPS: 1, Duration: 1, Start: -1}, timeline.ErrInvalidRange},
		{"no frames", SnapshotRequest{Source: "a.mp4", FPS: 2, Duration: 0.2}, timeline.ErrInvalidRange},
		{"past end", SnapshotRequest{Source: "b.mp4", FPS: 2, Duration: 3, Start: 1.5}, timeline.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Snapshot(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConvert(t *testing.T) {
	b, _ := newTestBuilder()
	target, err := preset.Builtin().Get(preset.SubtitleAudio)
	require.NoError(t, err)

	spec, err := b.Convert(context.Background(), ConvertRequest{Source: "a.mp4", Output: "a.wav", Target: target})
	require.NoError(t, err)

	assert.Equal(t, KindConvert, spec.Kind())
	assert.Equal(t, MediaAudio, spec.Media())
	require.Len(t, spec.Steps(), 1)
	assert.Equal(t, StepEncode, spec.Steps()[0].Kind)
	assert.Equal(t, target, spec.Steps()[0].Target)
	assert.InDelta(t, 10, spec.Duration(), 1e-9)
}

func TestAdjustVolume(t *testing.T) {
	b, _ := newTestBuilder()
	ctx := context.Background()

	spec, err := b.AdjustVolume(ctx, VolumeRequest{Source: "song.m4a", Output: "loud.m4a", Gain: 2})
	require.NoError(t, err)
	assert.Equal(t, KindVolume, spec.Kind())
	assert.Equal(t, 2.0, spec.Steps()[0].Gain)

	_, err = b.AdjustVolume(ctx, VolumeRequest{Source: "song.m4a", Output: "x", Gain: -1})
	assert.Error(t, err)
}

func TestSpec_AccessorsReturnCopies(t *testing.T) {
	b, _ := newTestBuilder()
	spec, err := b.Trim(context.Background(), TrimRequest{Source: "a.mp4", Output: "o.mp4", Range: timeline.MustNew(0, 1), Media: MediaVideo})
	require.NoError(t, err)

	inputs := spec.Inputs()
	inputs[0].Path = "mutated"
	steps := spec.Steps()
	steps[0].Kind = StepConcat

	assert.Equal(t, "a.mp4", spec.Inputs()[0].Path)
	assert.Equal(t, StepExtract, spec.Steps()[0].Kind)
}

func TestSnapshotName(t *testing.T) {
	assert.Equal(t, "shot0007.jpg", SnapshotName("shot", 7))
	assert.Equal(t, "12345.jpg", SnapshotName("", 12345))
}
