package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(filepath.Join(t.TempDir(), "library"))
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}
	return d
}

func TestNewDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "library")
	d, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}
	if d.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", d.Dir(), dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}

	d, err = NewDisk("")
	if err != nil {
		t.Fatalf("NewDisk(\"\") error = %v", err)
	}
	if want := filepath.Join(os.TempDir(), "mediakit"); d.Dir() != want {
		t.Errorf("Dir() = %s, want %s", d.Dir(), want)
	}
}

func TestDisk_Import(t *testing.T) {
	d := newTestDisk(t)

	path, err := d.Import(context.Background(), "../../etc/My Clip.MP4", strings.NewReader("frames"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if filepath.Dir(path) != d.Dir() {
		t.Errorf("path %s escaped %s", path, d.Dir())
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "My_Clip-") || !strings.HasSuffix(base, ".mp4") {
		t.Errorf("unexpected name %s", base)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "frames" {
		t.Errorf("content = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(d.Dir())
	if len(entries) != 1 {
		t.Errorf("expected only the imported file, found %d entries", len(entries))
	}
}

func TestDisk_ImportUniqueNames(t *testing.T) {
	d := newTestDisk(t)
	a, err := d.Import(context.Background(), "take.wav", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Import(context.Background(), "take.wav", strings.NewReader("b"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("both imports wrote %s", a)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDisk_ImportFailureLeavesNothing(t *testing.T) {
	d := newTestDisk(t)

	if _, err := d.Import(context.Background(), "clip.mp4", failingReader{}); err == nil {
		t.Fatal("expected error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Import(ctx, "clip.mp4", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	entries, _ := os.ReadDir(d.Dir())
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, stem, ext string
	}{
		{"clip.mp4", "clip", ".mp4"},
		{`C:\Users\me\Voice Memo.M4A`, "Voice_Memo", ".m4a"},
		{".hidden", "hidden", ""},
		{"", "source", ""},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"weird.m p4", "weird", ""},
	}
	for _, tt := range tests {
		stem, ext := splitName(tt.in)
		if stem != tt.stem || ext != tt.ext {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", tt.in, stem, ext, tt.stem, tt.ext)
		}
	}
}

func TestDisk_Open(t *testing.T) {
	d := newTestDisk(t)
	path, err := d.Import(context.Background(), "a.wav", bytes.NewReader([]byte("pcm")))
	if err != nil {
		t.Fatal(err)
	}

	rc, err := d.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "pcm" {
		t.Errorf("content = %q", data)
	}

	if _, err := d.Open(context.Background(), filepath.Join(d.Dir(), "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestDisk_Remove(t *testing.T) {
	d := newTestDisk(t)
	var paths []string
	for _, name := range []string{"part_1.mp4", "part_2.mp4"} {
		p := filepath.Join(d.Dir(), name)
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(d.Dir(), "never-written.mp4"))

	if err := d.Remove(context.Background(), paths); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
}

func TestDisk_RemoveReportsEveryFailure(t *testing.T) {
	d := newTestDisk(t)
	// Non-empty directories cannot be removed with os.Remove.
	var paths []string
	for _, name := range []string{"a", "b"} {
		dir := filepath.Join(d.Dir(), name)
		if err := os.MkdirAll(filepath.Join(dir, "child"), 0o750); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, dir)
	}

	err := d.Remove(context.Background(), paths)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, p := range paths {
		if !strings.Contains(err.Error(), p) {
			t.Errorf("error %q does not mention %s", err, p)
		}
	}
}

func TestDisk_Upload(t *testing.T) {
	_, err := newTestDisk(t).Upload(context.Background(), "key", strings.NewReader("x"))
	if !errors.Is(err, ErrUploadUnavailable) {
		t.Errorf("expected ErrUploadUnavailable, got %v", err)
	}
}
