package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maauso/mediakit/internal/bootstrap"
	"github.com/maauso/mediakit/internal/editor"
	"github.com/maauso/mediakit/internal/loudness"
	"github.com/maauso/mediakit/internal/media"
	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/task"
)

type stubEngine struct {
	mu    sync.Mutex
	specs []*pipeline.Spec
	err   error
}

func (s *stubEngine) ProbeDuration(context.Context, string) (float64, error) { return 10, nil }

func (s *stubEngine) ProbeInfo(_ context.Context, path string) (*media.Info, error) {
	return &media.Info{
		Path:       path,
		FormatName: "mov,mp4,m4a",
		Duration:   10,
		Size:       2_500_000,
		BitRate:    2_000_000,
		Streams: []media.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080},
			{Index: 1, CodecType: "audio", CodecName: "aac", SampleRate: 48000, Channels: 2},
		},
	}, nil
}

func (s *stubEngine) Execute(_ context.Context, spec *pipeline.Spec, onProgress func(time.Duration)) error {
	s.mu.Lock()
	s.specs = append(s.specs, spec)
	s.mu.Unlock()
	onProgress(5 * time.Second)
	return s.err
}

func (s *stubEngine) executed() []*pipeline.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*pipeline.Spec(nil), s.specs...)
}

type stubDecoder struct {
	amplitude float64
}

func (d stubDecoder) Decode(context.Context, string) (loudness.Stream, error) {
	samples := make([]float64, 400)
	for i := range samples {
		samples[i] = d.amplitude
	}
	return loudness.Stream{SampleRate: 100, Samples: samples}, nil
}

type cliTestEnv struct {
	engine *stubEngine
	dir    string
	source string
	ctx    *commandContext
}

func setupCLITestEnv(t *testing.T, amplitude float64) *cliTestEnv {
	t.Helper()

	dir := t.TempDir()
	source := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(source, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	engine := &stubEngine{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &cliTestEnv{engine: engine, dir: dir, source: source}
	env.ctx = &commandContext{
		build: func(bool) (*bootstrap.Dependencies, error) {
			session := task.NewSession(engine, task.WithLogger(logger))
			ed := editor.New(engine, stubDecoder{amplitude: amplitude}, session, editor.WithLogger(logger))
			return &bootstrap.Dependencies{Editor: ed, Session: session}, nil
		},
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommandWith(env.ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}
