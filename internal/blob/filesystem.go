package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilesystemStore keeps one file per blob under a root directory. Writes go
// through a temp file, fsync, and rename so a blob is either fully present
// or absent; a crash mid-upload leaves no visible artifact.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates the root directory if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) path(name string) string {
	// Names are server-generated UUIDs, not file record ids, and never
	// caller-supplied paths.
	return filepath.Join(s.root, filepath.Base(name)+".enc")
}

// Put writes the blob atomically.
func (s *FilesystemStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return fmt.Errorf("write blob: %w", err)
	}
	if size >= 0 && written != size {
		cleanup()
		return fmt.Errorf("write blob: wrote %d of %d bytes", written, size)
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close blob: %w", err)
	}

	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

// Get opens a blob for reading.
func (s *FilesystemStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a blob; missing blobs are ignored.
func (s *FilesystemStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
