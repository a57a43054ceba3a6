package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Disk is a Storage rooted at one directory. It cannot Upload; wrap it
// in a Bucket for that.
type Disk struct {
	dir string
}

// NewDisk creates dir if needed. An empty dir means os.TempDir()/mediakit.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mediakit")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the root directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Import copies r into a hidden partial file and renames it to
// <stem>-<8 hex><ext> once the copy completes, so the engine never reads a
// half-written source. The extension of name is kept for demuxer detection.
func (d *Disk) Import(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stem, ext := splitName(name)
	part, err := os.CreateTemp(d.dir, ".import-*.part")
	if err != nil {
		return "", fmt.Errorf("create partial file: %w", err)
	}
	partName := part.Name()

	_, err = io.Copy(part, &ctxReader{ctx: ctx, r: r})
	if cerr := part.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(partName)
		return "", fmt.Errorf("import %s: %w", name, err)
	}

	final := filepath.Join(d.dir, stem+"-"+uuid.NewString()[:8]+ext)
	if err := os.Rename(partName, final); err != nil {
		_ = os.Remove(partName)
		return "", fmt.Errorf("import %s: %w", name, err)
	}
	return final, nil
}

// Open opens the file at path for reading.
func (d *Disk) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path) // #nosec G304 - outputs are validated by the editor
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// Remove deletes every path it can and reports all failures together.
func (d *Disk) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Upload always fails with ErrUploadUnavailable.
func (d *Disk) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrUploadUnavailable
}

// splitName reduces a client-supplied file name to a safe stem and its
// lower-cased extension.
func splitName(name string) (string, string) {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := filepath.Ext(base)
	if ext == base {
		ext = ""
	}
	stem := strings.TrimLeft(strings.Map(safeRune, strings.TrimSuffix(base, ext)), ".")
	if stem == "" {
		stem = "source"
	}
	if len(ext) < 2 || strings.IndexFunc(ext[1:], func(r rune) bool { return safeRune(r) != r || r == '.' }) >= 0 {
		ext = ""
	}
	return stem, strings.ToLower(ext)
}

func safeRune(r rune) rune {
	switch {
	case r == '-' || r == '_' || r == '.':
		return r
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	default:
		return '_'
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
