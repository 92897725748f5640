package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kolamcraft/catalog/internal/storage"
)

type blobEntry struct {
	ContentType string
	Size        int64
	Data        []byte
}

// Storage implements storage.Storage using an in-memory map. Used for local
// development without a Supabase project and in tests.
type Storage struct {
	mu      sync.RWMutex
	blobs   map[string]*blobEntry
	baseURL string

	// FailDelete makes Delete return an error, for exercising the
	// best-effort cleanup path in tests.
	FailDelete bool
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		blobs:   make(map[string]*blobEntry),
		baseURL: baseURL,
	}
}

// Upload stores the blob bytes in memory. Existing keys are never
// overwritten, matching the upsert-disabled behavior of the real store.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[input.Key]; exists {
		return nil, fmt.Errorf("blob already exists: %s", input.Key)
	}

	s.blobs[input.Key] = &blobEntry{
		ContentType: input.ContentType,
		Size:        int64(len(data)),
		Data:        data,
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.PublicURL(input.Key),
	}, nil
}

// Delete removes a blob from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete {
		return fmt.Errorf("delete failed: %s", key)
	}

	if _, exists := s.blobs[key]; !exists {
		return fmt.Errorf("blob not found: %s", key)
	}

	delete(s.blobs, key)
	return nil
}

// PublicURL returns the URL for the given key.
func (s *Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/images/%s", s.baseURL, key)
}

// Has reports whether a blob exists, for test assertions.
func (s *Storage) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.blobs[key]
	return exists
}

// Len reports the number of stored blobs.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
