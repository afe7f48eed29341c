package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalFileStore keeps uploads on the local filesystem. Paths are used as given.
type LocalFileStore struct{}

func NewLocalFileStore() *LocalFileStore {
	return &LocalFileStore{}
}

func (s *LocalFileStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	zap.S().Debugw("stored upload", "path", path, "contentType", contentType)
	return nil
}

// Remove deletes path only when it is an existing, writable regular file.
// Anything else is skipped silently.
func (s *LocalFileStore) Remove(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		zap.S().Debugw("skipping removal of missing or irregular file", "path", path)
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		zap.S().Debugw("skipping removal of read-only file", "path", path)
		return nil
	}
	f.Close()

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
