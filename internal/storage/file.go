package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBlobs stores each key as <dir>/<key>.json.
type FileBlobs struct {
	dir string
}

// NewFileBlobs creates the directory if needed.
func NewFileBlobs(dir string) (*FileBlobs, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return &FileBlobs{dir: dir}, nil
}

func (f *FileBlobs) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key)+".json")
}

// Get reads the file for key.
func (f *FileBlobs) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put writes data to a temporary file in the same directory and renames it
// over the previous version, so readers never see a partial document.
func (f *FileBlobs) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, filepath.Base(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, f.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key. A missing file is not an error.
func (f *FileBlobs) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileBlobs) Close() error {
	return nil
}
