package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type historyRepo struct {
	db *sqlx.DB
}

// NewStateHistoryRepo creates a new PostgreSQL-backed StateHistoryRepository.
func NewStateHistoryRepo(db *sqlx.DB) port.StateHistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Append(ctx context.Context, c *domain.StateChange) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO document_state_history (id, document_id, from_state, to_state, reason, created_at)
		VALUES (:id, :document_id, :from_state, :to_state, :reason, :created_at)`, c)
	if err != nil {
		return fmt.Errorf("historyRepo.Append: %w", err)
	}
	return nil
}

func (r *historyRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.StateChange, error) {
	changes := []domain.StateChange{}
	err := r.db.SelectContext(ctx, &changes,
		`SELECT id, document_id, from_state, to_state, reason, created_at
		FROM document_state_history WHERE document_id = $1 ORDER BY created_at ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("historyRepo.ListByDocument: %w", err)
	}
	return changes, nil
}

type submissionRepo struct {
	db *sqlx.DB
}

// NewSubmissionRepo creates a new PostgreSQL-backed SubmissionRepository.
func NewSubmissionRepo(db *sqlx.DB) port.SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Record(ctx context.Context, a *domain.SubmissionAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO submission_attempts (id, document_id, idempotency_key, succeeded, refused, ticket, error, created_at)
		VALUES (:id, :document_id, :idempotency_key, :succeeded, :refused, :ticket, :error, :created_at)`, a)
	if err != nil {
		return fmt.Errorf("submissionRepo.Record: %w", err)
	}
	return nil
}

func (r *submissionRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	attempts := []domain.SubmissionAttempt{}
	err := r.db.SelectContext(ctx, &attempts,
		`SELECT id, document_id, idempotency_key, succeeded, refused, ticket, error, created_at
		FROM submission_attempts WHERE document_id = $1 ORDER BY created_at ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("submissionRepo.ListByDocument: %w", err)
	}
	return attempts, nil
}
