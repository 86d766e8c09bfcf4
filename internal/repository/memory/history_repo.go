package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type historyRepo struct {
	mu      sync.RWMutex
	changes map[uuid.UUID][]domain.StateChange
}

// NewStateHistoryRepo creates an in-memory StateHistoryRepository.
func NewStateHistoryRepo() port.StateHistoryRepository {
	return &historyRepo{changes: make(map[uuid.UUID][]domain.StateChange)}
}

func (r *historyRepo) Append(_ context.Context, c *domain.StateChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.changes[c.DocumentID] = append(r.changes[c.DocumentID], *c)
	return nil
}

func (r *historyRepo) ListByDocument(_ context.Context, documentID uuid.UUID) ([]domain.StateChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.StateChange{}, r.changes[documentID]...), nil
}

type submissionRepo struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID][]domain.SubmissionAttempt
}

// NewSubmissionRepo creates an in-memory SubmissionRepository.
func NewSubmissionRepo() port.SubmissionRepository {
	return &submissionRepo{attempts: make(map[uuid.UUID][]domain.SubmissionAttempt)}
}

func (r *submissionRepo) Record(_ context.Context, a *domain.SubmissionAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.attempts[a.DocumentID] = append(r.attempts[a.DocumentID], *a)
	return nil
}

func (r *submissionRepo) ListByDocument(_ context.Context, documentID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.SubmissionAttempt{}, r.attempts[documentID]...), nil
}
