package memory

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// ArtifactStore keeps artifacts in process memory. It backs the memory
// storage mode and tests.
type ArtifactStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	now     func() time.Time
}

// NewArtifactStore creates an empty in-memory store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{objects: make(map[string][]byte), now: time.Now}
}

var _ port.ArtifactStore = (*ArtifactStore)(nil)

func (s *ArtifactStore) Put(_ context.Context, input port.PutArtifactInput) (string, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}
	s.mu.Lock()
	s.objects[input.Key] = data
	s.mu.Unlock()
	return "memory://" + input.Key, nil
}

func (s *ArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *ArtifactStore) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("artifact %s: %w", key, domain.ErrNotFound)
	}
	q := url.Values{"expires": {s.now().Add(expiry).UTC().Format(time.RFC3339)}}
	return "memory://" + key + "?" + q.Encode(), nil
}
