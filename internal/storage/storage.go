package storage

import (
	"context"
	"io"
)

// Storage defines the blob store contract for product images. Callers treat
// Delete as best-effort: its error is logged and discarded by contract, so
// implementations must make it safe to call on a missing key.
type Storage interface {
	// Upload stores a blob under the given key and returns its public URL.
	// Keys are never overwritten; uploading to an existing key fails.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a blob by its key.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the public URL for the given key.
	PublicURL(key string) string
}

// UploadInput holds the parameters for uploading a blob.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}
