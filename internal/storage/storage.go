// Package storage holds the blob backends for uploaded KYC documents.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key names no stored object.
var ErrNotFound = errors.New("object not found")

// BlobStore stores document bytes under opaque keys.
type BlobStore interface {
	// Put writes size bytes from r under key. A negative size means unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error) // ErrNotFound for unknown keys
	Delete(ctx context.Context, key string) error                // Deleting a missing key is not an error
}
