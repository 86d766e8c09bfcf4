package port

import (
	"context"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
)

// StateHistoryRepository defines the contract for lifecycle history persistence.
type StateHistoryRepository interface {
	Append(ctx context.Context, change *domain.StateChange) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.StateChange, error)
}

// SubmissionRepository records every hand-off to the authority.
type SubmissionRepository interface {
	Record(ctx context.Context, attempt *domain.SubmissionAttempt) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.SubmissionAttempt, error)
}
