package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kolamcraft/catalog/internal/storage"
	"github.com/kolamcraft/catalog/pkg/httpclient"
)

// Config holds connection details for a Supabase storage bucket.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string

	// ServiceKey is the service-role API key used for writes.
	ServiceKey string

	// Bucket is the storage bucket holding product images.
	Bucket string
}

// Storage implements storage.Storage against the Supabase storage API.
type Storage struct {
	cfg    Config
	client *httpclient.Client
}

// New creates a Supabase-backed storage adapter.
func New(cfg Config, client *httpclient.Client) *Storage {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Storage{cfg: cfg, client: client}
}

func (s *Storage) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.cfg.BaseURL, s.cfg.Bucket, key)
}

// PublicURL returns the public-access URL for the given key.
func (s *Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.cfg.BaseURL, s.cfg.Bucket, key)
}

// Upload stores a blob in the bucket. Upserts are disabled so an existing
// key is never silently overwritten.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	// Buffer the payload so the request body can be replayed on retry.
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(input.Key), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ServiceKey)
	req.Header.Set("Content-Type", input.ContentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload object %s: %w", input.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upload object %s: %w", input.Key, httpclient.ResponseError(resp))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.PublicURL(input.Key),
	}, nil
}

// Delete removes a blob from the bucket. Deleting a missing key returns an
// error from the API, which callers discard by contract.
func (s *Storage) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), http.NoBody)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ServiceKey)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete object %s: %w", key, httpclient.ResponseError(resp))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
