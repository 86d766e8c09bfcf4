package s3_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
	s3store "fiscaldoc/internal/storage/s3"
)

// fakeS3 answers path-style object requests from an in-memory map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newStore(t *testing.T, endpoint string) port.ArtifactStore {
	t.Helper()
	store, err := s3store.NewArtifactStore(context.Background(), &config.S3Config{
		Region:        "us-east-1",
		Bucket:        "fiscal-artifacts",
		Endpoint:      endpoint,
		AccessKey:     "test",
		SecretKey:     "test",
		PresignExpiry: 900,
	})
	require.NoError(t, err)
	return store
}

func TestArtifactStore_PutThenGet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	server := httptest.NewServer(fake)
	defer server.Close()
	store := newStore(t, server.URL)

	location, err := store.Put(context.Background(), port.PutArtifactInput{
		Key:         "documents/abc/authority-response.json",
		Body:        bytes.NewReader([]byte(`{"outcome":"accepted"}`)),
		ContentType: "application/json",
	})
	require.NoError(t, err)
	assert.Contains(t, location, "/fiscal-artifacts/documents/abc/authority-response.json")
	assert.Equal(t, "application/json", fake.types["/fiscal-artifacts/documents/abc/authority-response.json"])

	data, err := store.Get(context.Background(), "documents/abc/authority-response.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"accepted"}`, string(data))
}

func TestArtifactStore_GetMissing(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	server := httptest.NewServer(fake)
	defer server.Close()
	store := newStore(t, server.URL)

	_, err := store.Get(context.Background(), "documents/missing.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArtifactStore_PresignedURL(t *testing.T) {
	store := newStore(t, "http://localhost:4566")

	url, err := store.PresignedURL(context.Background(), "documents/abc/authority-response.json", time.Hour)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:4566/fiscal-artifacts/documents/abc/authority-response.json?"))
	// Capped at the configured presign expiry.
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestNewArtifactStore_RequiresBucket(t *testing.T) {
	_, err := s3store.NewArtifactStore(context.Background(), &config.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
