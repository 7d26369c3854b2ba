// Package blob stores opaque ciphertext blobs addressed by name. Backends
// never inspect, re-encrypt, or re-compress blob contents; integrity and
// authorization checks live above this layer.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no blob exists under the given name.
var ErrNotFound = errors.New("blob not found")

// Store is a blob storage backend. A Put is atomic: a reader never observes
// a partially written blob, and a failed Put leaves nothing behind.
type Store interface {
	// Put writes a blob under name. size is the exact byte count of r.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Get opens a blob for reading. The caller closes the returned reader.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
