package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"
)

// Publisher uploads finished outputs through a Storage. Object keys are
// <prefix>/<yyyymmdd>/<file name>.
type Publisher struct {
	store  Storage
	prefix string
	now    func() time.Time
}

// NewPublisher creates a Publisher writing under prefix.
func NewPublisher(store Storage, prefix string) *Publisher {
	return &Publisher{store: store, prefix: prefix, now: time.Now}
}

// Publish uploads the file at p and returns its URL.
func (pub *Publisher) Publish(ctx context.Context, p string) (string, error) {
	rc, err := pub.store.Open(ctx, p)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	url, err := pub.store.Upload(ctx, pub.Key(p), rc)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", filepath.Base(p), err)
	}
	return url, nil
}

// Key returns the object key used for the file at p.
func (pub *Publisher) Key(p string) string {
	return path.Join(pub.prefix, pub.now().UTC().Format("20060102"), filepath.Base(p))
}
