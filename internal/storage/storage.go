// Package storage manages media files on local disk and publishes finished
// outputs to S3. The disk holds imported sources and removes the partial
// outputs left behind by failed or cancelled tasks.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrUploadUnavailable is returned by Upload when no object store is configured.
var ErrUploadUnavailable = errors.New("object upload not configured")

// Storage holds imported sources and publishes task outputs.
type Storage interface {
	// Import writes r as a new source file named after name and returns
	// its path. The file only becomes visible once fully written.
	Import(ctx context.Context, name string, r io.Reader) (path string, err error)

	// Open returns a reader for the file at path. The caller closes it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes paths. Missing files are ignored.
	Remove(ctx context.Context, paths []string) error

	// Upload stores r under key and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader) (url string, err error)
}
