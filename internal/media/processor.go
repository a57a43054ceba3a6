// Package media runs editing pipelines on an external media engine.
// The only engine shipped is ffmpeg/ffprobe driven through the CLI.
package media

import (
	"context"
	"time"

	"github.com/maauso/mediakit/internal/pipeline"
)

// Processor defines the engine operations the rest of the application needs.
type Processor interface {
	// ProbeDuration returns the duration of a media file in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// ProbeInfo returns container and stream metadata for a media file.
	ProbeInfo(ctx context.Context, path string) (*Info, error)

	// Execute runs spec to completion. onProgress, when non-nil, receives the
	// elapsed output media time as the engine reports it. Cancelling ctx
	// aborts the run; partial outputs are left for the caller to remove.
	Execute(ctx context.Context, spec *pipeline.Spec, onProgress func(time.Duration)) error
}

// Info is the subset of ffprobe metadata exposed to callers.
type Info struct {
	Path       string   `json:"path"`
	FormatName string   `json:"format_name"`
	Duration   float64  `json:"duration"`
	Size       int64    `json:"size"`
	BitRate    int64    `json:"bit_rate"`
	Streams    []Stream `json:"streams"`
}

// Stream describes one elementary stream of a container.
type Stream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// HasVideo reports whether any stream carries video.
func (i *Info) HasVideo() bool {
	for _, s := range i.Streams {
		if s.CodecType == "video" {
			return true
		}
	}
	return false
}
