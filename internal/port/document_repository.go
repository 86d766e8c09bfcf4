package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
)

// DocumentFilter narrows document listings. Zero values are ignored.
type DocumentFilter struct {
	Type       domain.DocumentType
	State      domain.DocumentState
	CustomerID *uuid.UUID
	SeriesCode string
	IssuedFrom *time.Time
	IssuedTo   *time.Time
}

// DocumentRepository defines the contract for fiscal document persistence.
// Line items are stored and loaded with their document.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.FiscalDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error)
	List(ctx context.Context, filter DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error)
	// ListPendingSubmission returns emitted documents, oldest first, skipping
	// those the authority refused at or after refusedBefore.
	ListPendingSubmission(ctx context.Context, refusedBefore time.Time, limit int) ([]domain.FiscalDocument, error)
	// UpdateDraft replaces the lines, totals and header of a draft. It returns
	// domain.ErrDocumentFrozen when the stored document is no longer a draft.
	UpdateDraft(ctx context.Context, doc *domain.FiscalDocument) error
	// DeleteDraft removes a draft; emitted documents are never deleted.
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	// MarkEmitted persists number, customer snapshot, totals and the emitted
	// state, conditional on the stored state still being draft.
	MarkEmitted(ctx context.Context, doc *domain.FiscalDocument) error
	// UpdateLifecycle persists state, authority metadata, void reason and
	// timestamps, conditional on the stored state being from.
	UpdateLifecycle(ctx context.Context, doc *domain.FiscalDocument, from domain.DocumentState) error
	// LinkCorrection records an informational backlink from an original to a note.
	LinkCorrection(ctx context.Context, originalID, noteID uuid.UUID) error
	ListCorrections(ctx context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error)
}
