package object

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when a key has no stored object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrURLUnsupported is returned by stores that cannot hand out readable URLs.
	ErrURLUnsupported = errors.New("object url not supported")
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Store saves, reads, and removes blobs addressed by slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. A missing key yields ErrObjectNotFound where the
	// backend can tell; callers treat that as success.
	Delete(ctx context.Context, key string) error
	// Locator returns a durable, backend-qualified reference for key.
	Locator(key string) string
	// URL returns a time-limited readable URL for key.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
