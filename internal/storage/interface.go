package storage

import (
	"context"
	"io"
	"time"
)

// ArchiveObject describes one stored export snapshot.
type ArchiveObject struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ArchiveStore keeps export snapshots. The local filesystem implementation
// is the only backend; an object store would implement the same interface.
type ArchiveStore interface {
	// Put stores the content under a fresh key derived from name and
	// returns that key.
	Put(ctx context.Context, name string, r io.Reader) (string, error)

	// Open returns the content of key. Missing keys return ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a key exists and returns its size
	Exists(ctx context.Context, key string) (exists bool, size int64, err error)

	// List returns all objects, newest first.
	List(ctx context.Context) ([]ArchiveObject, error)

	Delete(ctx context.Context, key string) error
}
