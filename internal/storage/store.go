// Package storage persists raw uploaded files.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Store defines the interface for raw file storage.
// Lookups of unknown keys return an error wrapping fs.ErrNotExist.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
	// Location describes where key is stored, for logs and records.
	Location(key string) string
}

// Key derives the storage key for an upload from its id and original filename.
func Key(id, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.csv"
	}
	return id + "_" + name
}
