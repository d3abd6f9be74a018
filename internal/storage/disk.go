package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore saves uploaded images to a directory on local disk.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if missing.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: image directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating image dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir is the directory images are written to.
func (d *DiskStore) Dir() string { return d.dir }

// Save writes to a temporary file first and renames it into place, so a
// reader never sees a half-written image.
func (d *DiskStore) Save(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	name := SafeFilename(filename)

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: closing %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("storage: chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return "", fmt.Errorf("storage: moving %s into place: %w", name, err)
	}
	return name, nil
}
