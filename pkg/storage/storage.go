// Package storage persists uploaded document payloads on the local
// filesystem or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned by Save when the payload exceeds the limit
	ErrTooLarge = errors.New("file exceeds maximum upload size")
	// ErrNotFound is returned when the stored object does not exist
	ErrNotFound = errors.New("stored file not found")
)

// Storage saves, reads and removes document payloads by the path Save returns.
type Storage interface {
	Save(ctx context.Context, filename string, r io.Reader, limit int64) (path string, size int64, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// objectName generates a collision free name keeping the original extension.
func objectName(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}
