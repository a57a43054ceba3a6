package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maauso/mediakit/internal/editor"
	"github.com/maauso/mediakit/internal/pipeline"
	"github.com/maauso/mediakit/internal/preset"
)

func TestTrimCommand(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)
	output := filepath.Join(env.dir, "out", "clip.mp4")

	out, _, err := runCLI(t, env, "trim", env.source, output, "--begin", "1", "--end", "4")
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	requireContains(t, out, "SUCCEEDED")
	requireContains(t, out, output)

	specs := env.engine.executed()
	if len(specs) != 1 {
		t.Fatalf("expected 1 executed spec, got %d", len(specs))
	}
	if specs[0].Kind() != pipeline.KindTrim {
		t.Fatalf("kind = %s, want trim", specs[0].Kind())
	}
	if specs[0].Media() != pipeline.MediaVideo {
		t.Fatalf("media = %s, want video", specs[0].Media())
	}
}

func TestTrimCommandQuiet(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)
	output := filepath.Join(env.dir, "clip.mp4")

	_, stderr, err := runCLI(t, env, "--quiet", "trim", env.source, output, "--end", "2")
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if stderr != "" {
		t.Fatalf("expected no progress output, got %q", stderr)
	}
}

func TestTrimCommandRejectsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	_, _, err := runCLI(t, env, "trim", filepath.Join(env.dir, "missing.mp4"), filepath.Join(env.dir, "o.mp4"), "--end", "2")
	if !errors.Is(err, editor.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	requireContains(t, err.Error(), editor.ErrorPath.String())
}

func TestTrimCommandReportsEngineFailure(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)
	env.engine.err = errors.New("ffmpeg exploded")

	out, _, err := runCLI(t, env, "trim", env.source, filepath.Join(env.dir, "o.mp4"), "--end", "2")
	if err == nil {
		t.Fatal("expected error")
	}
	requireContains(t, err.Error(), "ffmpeg exploded")
	requireContains(t, out, "FAILED")
}

func TestCutCommandReportsSkippedSegments(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)
	outDir := filepath.Join(env.dir, "parts")

	out, stderr, err := runCLI(t, env, "cut", env.source, outDir,
		"--segment", "a:0-2",
		"--segment", "b:8-20",
		"--segment", "c:3-5",
	)
	if err != nil {
		t.Fatalf("cut: %v", err)
	}
	requireContains(t, stderr, "skipped segment b")
	requireContains(t, out, filepath.Join(outDir, "input_a.mp4"))
	requireContains(t, out, filepath.Join(outDir, "input_c.mp4"))

	if n := len(env.engine.executed()); n != 2 {
		t.Fatalf("expected 2 executed specs, got %d", n)
	}
}

func TestCutCommandRejectsMalformedSegment(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	_, _, err := runCLI(t, env, "cut", env.source, env.dir, "--segment", "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	requireContains(t, err.Error(), "INDEX:BEGIN-END")
	if n := len(env.engine.executed()); n != 0 {
		t.Fatalf("expected nothing executed, got %d", n)
	}
}

func TestCompositeCommand(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)
	output := filepath.Join(env.dir, "joined.m4a")

	out, _, err := runCLI(t, env, "composite", output,
		"--clip", env.source+"@0-2",
		"--clip", env.source+"@5-6.5",
	)
	if err != nil {
		t.Fatalf("composite: %v", err)
	}
	requireContains(t, out, "SUCCEEDED")

	specs := env.engine.executed()
	if len(specs) != 1 || specs[0].Kind() != pipeline.KindComposite {
		t.Fatalf("unexpected specs: %v", specs)
	}
	if specs[0].Media() != pipeline.MediaAudio {
		t.Fatalf("media = %s, want audio", specs[0].Media())
	}
}

func TestConvertCommandUnknownPreset(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	_, _, err := runCLI(t, env, "convert", env.source, filepath.Join(env.dir, "o.mp4"), "--preset", "nope")
	if !errors.Is(err, preset.ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestVolumeCommandRelative(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	_, _, err := runCLI(t, env, "volume", env.source, filepath.Join(env.dir, "loud.mp4"), "--db", "3", "--relative")
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	specs := env.engine.executed()
	if len(specs) != 1 || specs[0].Kind() != pipeline.KindVolume {
		t.Fatalf("unexpected specs: %v", specs)
	}
}

func TestLoudnessCommand(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	out, _, err := runCLI(t, env, "loudness", env.source)
	if err != nil {
		t.Fatalf("loudness: %v", err)
	}
	requireContains(t, out, env.source)
	requireContains(t, out, "-6.02 dBFS")
}

func TestLoudnessCommandSilent(t *testing.T) {
	env := setupCLITestEnv(t, 0)

	out, _, err := runCLI(t, env, "loudness", env.source)
	if err != nil {
		t.Fatalf("loudness: %v", err)
	}
	requireContains(t, out, "silent")
}

func TestInfoCommand(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	out, _, err := runCLI(t, env, "info", env.source)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, "mov,mp4,m4a")
	requireContains(t, out, "2.5 MB")
	requireContains(t, out, "1920x1080")
	requireContains(t, out, "48,000 Hz, 2 ch")
}

func TestPresetsCommand(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	out, _, err := runCLI(t, env, "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	for _, name := range preset.Builtin().Names() {
		requireContains(t, out, name)
	}
}

func TestRootCommandLists(t *testing.T) {
	env := setupCLITestEnv(t, 0.5)

	out, _, err := runCLI(t, env, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"trim", "cut", "composite", "watermark", "snapshot", "convert", "volume", "loudness", "info", "presets"} {
		if !strings.Contains(out, name) {
			t.Errorf("help missing %q", name)
		}
	}
}
