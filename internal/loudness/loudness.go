// Package loudness computes decibel statistics over decoded audio samples
// and the linear gain needed to retarget a stream to a desired level.
//
// Levels are expressed in dBFS: 20*log10(rms) with full scale at amplitude
// 1.0. A stream of pure digital silence has a level of -Inf, which callers
// must treat as a valid "silent" result rather than an error.
package loudness

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrEmptyStream is returned when a computation receives zero samples.
	ErrEmptyStream = errors.New("empty sample stream")
	// ErrInvalidWindow is returned when the median window or sample rate is not positive.
	ErrInvalidWindow = errors.New("invalid analysis window")
)

// DefaultWindow is the median window used when none is configured.
const DefaultWindow = time.Second

// Stream is a mono sequence of PCM samples scaled to [-1.0, 1.0].
type Stream struct {
	// SampleRate is the number of samples per second.
	SampleRate int
	// Samples holds the decoded amplitudes.
	Samples []float64
}

// Duration returns the playback length of the stream.
func (s Stream) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Stats holds the loudness figures reported for one file.
type Stats struct {
	Decibel       float64 `json:"decibel"`
	DecibelMedian float64 `json:"decibel_median"`
}

// Decibel returns the overall level of samples in dBFS, computed from the
// RMS of the entire stream.
func Decibel(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyStream
	}
	return toDecibel(rms(samples)), nil
}

// DecibelMedian splits the stream into fixed windows of the given length,
// measures each window with Decibel and returns the median of those values.
// A trailing partial window is measured as well. With an even number of
// windows the two middle values are averaged.
func DecibelMedian(stream Stream, window time.Duration) (float64, error) {
	if len(stream.Samples) == 0 {
		return 0, ErrEmptyStream
	}
	if window <= 0 || stream.SampleRate <= 0 {
		return 0, fmt.Errorf("%w: window=%s, sample_rate=%d", ErrInvalidWindow, window, stream.SampleRate)
	}

	size := int(math.Round(float64(stream.SampleRate) * window.Seconds()))
	if size < 1 {
		size = 1
	}

	levels := make([]float64, 0, len(stream.Samples)/size+1)
	for start := 0; start < len(stream.Samples); start += size {
		end := min(start+size, len(stream.Samples))
		levels = append(levels, toDecibel(rms(stream.Samples[start:end])))
	}

	return median(levels), nil
}

// Analyze returns both the overall level and the windowed median level.
func Analyze(stream Stream, window time.Duration) (Stats, error) {
	db, err := Decibel(stream.Samples)
	if err != nil {
		return Stats{}, err
	}
	med, err := DecibelMedian(stream, window)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Decibel: db, DecibelMedian: med}, nil
}

// Gain returns the linear amplitude multiplier that moves a stream measured
// at current dBFS to target dBFS.
func Gain(current, target float64) float64 {
	return math.Pow(10, (target-current)/20)
}

// ApplyGain returns a copy of samples scaled by gain.
// The input slice is left untouched.
func ApplyGain(samples []float64, gain float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s * gain
	}
	return out
}

func rms(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// toDecibel maps an RMS amplitude to dBFS. Zero maps to -Inf.
func toDecibel(amplitude float64) float64 {
	return 20 * math.Log10(amplitude)
}

// median sorts values in place. -Inf entries sort first.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
