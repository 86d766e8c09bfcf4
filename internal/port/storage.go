package port

import (
	"context"
	"io"
	"time"
)

// PutArtifactInput encapsulates the parameters needed to archive an artifact.
type PutArtifactInput struct {
	Key         string
	Body        io.Reader
	ContentType string
}

// ArtifactStore archives authority artifacts (responses, hashes, receipts).
type ArtifactStore interface {
	Put(ctx context.Context, input PutArtifactInput) (location string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
