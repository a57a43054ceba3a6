package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"

	"github.com/maauso/mediakit/internal/loudness"
)

// ErrNoAudio is returned when a file has no decodable audio stream.
var ErrNoAudio = errors.New("no audio stream")

// FFmpegDecoder implements Decoder using ffmpeg CLI.
type FFmpegDecoder struct {
	ffmpegPath string
	sampleRate int
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
// A non-positive sampleRate selects DefaultSampleRate.
func NewFFmpegDecoder(ffmpegPath string, sampleRate int) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, sampleRate: sampleRate}
}

var _ Decoder = (*FFmpegDecoder)(nil)

// SampleRate returns the analysis rate of decoded streams.
func (d *FFmpegDecoder) SampleRate() int {
	return d.sampleRate
}

// Decode implements Decoder.Decode by piping raw little-endian float32 PCM
// out of ffmpeg.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (loudness.Stream, error) {
	if _, err := os.Stat(path); err != nil {
		return loudness.Stream{}, fmt.Errorf("input file: %w", err)
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-hide_banner",
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(d.sampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return loudness.Stream{}, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return loudness.Stream{}, fmt.Errorf("start ffmpeg: %w", err)
	}

	samples, readErr := readFloat32LE(bufio.NewReader(stdout))
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return loudness.Stream{}, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return loudness.Stream{}, fmt.Errorf("decode %s: %w, stderr: %s", path, err, stderr.String())
	}
	if readErr != nil {
		return loudness.Stream{}, fmt.Errorf("read samples: %w", readErr)
	}
	if len(samples) == 0 {
		return loudness.Stream{}, fmt.Errorf("%w: %s", ErrNoAudio, path)
	}

	return loudness.Stream{SampleRate: d.sampleRate, Samples: samples}, nil
}

// readFloat32LE reads packed little-endian float32 samples until EOF.
// A trailing partial sample is discarded.
func readFloat32LE(r io.Reader) ([]float64, error) {
	var samples []float64
	buf := make([]byte, 4096)
	var carry int
	for {
		n, err := r.Read(buf[carry:])
		n += carry
		whole := n - n%4
		for i := 0; i < whole; i += 4 {
			bits := binary.LittleEndian.Uint32(buf[i : i+4])
			samples = append(samples, float64(math.Float32frombits(bits)))
		}
		carry = copy(buf, buf[whole:n])
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if err != nil {
			return samples, err
		}
	}
}
