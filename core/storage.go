package core

import (
	"context"
	"io"
)

// ErrFileNotFound is returned by a FileStore when no object is stored under a key.
var ErrFileNotFound = NewNotFoundError("file")

// FileStore stores uploaded files under opaque keys.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
