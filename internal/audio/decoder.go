// Package audio decodes media files into PCM sample streams for analysis.
package audio

import (
	"context"

	"github.com/maauso/mediakit/internal/loudness"
)

// DefaultSampleRate is the analysis rate used when none is configured.
// Loudness statistics do not need full-band audio.
const DefaultSampleRate = 16000

// Decoder defines the interface for decoding the audio of a media file.
type Decoder interface {
	// Decode returns the first audio stream of path downmixed to mono,
	// resampled to the decoder's analysis rate, with samples in [-1, 1].
	Decode(ctx context.Context, path string) (loudness.Stream, error)
}
