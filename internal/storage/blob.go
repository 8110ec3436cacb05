// Package storage persists image bytes on the local filesystem, keyed by
// relative blob paths recorded in the metadata store.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBlobNotFound is returned when a blob path has no stored bytes.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore reads and writes image blobs under a single root directory.
type BlobStore struct {
	root string
}

// NewBlobStore creates the root directory if needed and returns a store.
func NewBlobStore(root string) (*BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &BlobStore{root: abs}, nil
}

// resolve maps a relative blob path to an absolute path under the root,
// rejecting anything that would escape it.
func (b *BlobStore) resolve(blobPath string) (string, error) {
	if blobPath == "" {
		return "", errors.New("empty blob path")
	}
	clean := filepath.Clean(filepath.FromSlash(blobPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob path %q", blobPath)
	}
	return filepath.Join(b.root, clean), nil
}

// Write stores the reader's bytes at blobPath, creating parent directories
// as needed, and returns the number of bytes written.
func (b *BlobStore) Write(blobPath string, r io.Reader) (int64, error) {
	dst, err := b.resolve(blobPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create blob dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(dst)
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("close blob: %w", err)
	}
	return n, nil
}

// Open returns a reader over the stored blob. The caller closes it.
func (b *BlobStore) Open(blobPath string) (io.ReadSeekCloser, error) {
	src, err := b.resolve(blobPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes a stored blob. Deleting a missing blob is not an error.
func (b *BlobStore) Delete(blobPath string) error {
	dst, err := b.resolve(blobPath)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
