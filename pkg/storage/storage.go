package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("object not found")

// Storage stores uploaded attachment bytes under opaque keys
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key. The caller closes the reader.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content with the given key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the address clients use to fetch key
	URL(key string) string
}
