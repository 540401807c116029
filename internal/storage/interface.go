package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// UploadInput carries one object upload.
type UploadInput struct {
	Key         string
	Reader      io.Reader
	Size        int64
	ContentType string
	// CacheControl for the stored object; converted artifacts are immutable
	CacheControl string
	Metadata     map[string]string
}

// ObjectStorage defines the interface for object storage operations.
// "Object not found" is a normal nil result on Download/Stat, not an error.
type ObjectStorage interface {
	// EnsureBucket creates the backing bucket when it does not exist.
	EnsureBucket(ctx context.Context) error

	// Upload stores an object and returns nothing; the download URL is
	// produced separately by PresignDownload or GetURL.
	Upload(ctx context.Context, in *UploadInput) error

	// Download opens an object for reading; (nil, nil) when absent.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadRange opens the byte range [start, end] of an object;
	// (nil, nil) when absent. end < 0 means "to the end of the object".
	DownloadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)

	// Stat returns object metadata; (nil, nil) when absent.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns objects under the prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes an object. Deleting an absent object is a no-op.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for accessing an object.
	GetURL(key string) string

	// PresignDownload returns a signed GET URL valid for expiresIn.
	PresignDownload(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
