package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes payloads under a single directory.
type LocalStorage struct {
	dir string
}

// NewLocal creates dir if needed and returns a LocalStorage rooted there.
func NewLocal(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Save(ctx context.Context, filename string, r io.Reader, limit int64) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	path := filepath.Join(s.dir, objectName(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("close %s: %w", path, closeErr)
	case n > limit:
		_ = os.Remove(path)
		return "", 0, ErrTooLarge
	}
	return path, n, nil
}

func (s *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStorage) Remove(_ context.Context, path string) error {
	if err := s.contains(path); err != nil {
		return err
	}
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// contains refuses paths outside the storage directory.
func (s *LocalStorage) contains(path string) error {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %q is outside the upload directory", path)
	}
	return nil
}
