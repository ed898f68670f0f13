package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored screenshot object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage defines the object storage operations the embed job needs.
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download downloads an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// List returns up to limit objects under prefix, starting after cursor.
	// The returned cursor is empty once the listing is exhausted.
	List(ctx context.Context, prefix, cursor string, limit int) ([]ObjectInfo, string, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string
}

// BucketEnsurer is implemented by stores that can create their bucket on
// first use.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}
