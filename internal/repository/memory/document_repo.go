// Package memory provides process-local implementations of the persistence
// ports. They back the development server profile and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type documentRepo struct {
	mu          sync.RWMutex
	docs        map[uuid.UUID]*domain.FiscalDocument
	corrections map[uuid.UUID][]uuid.UUID
}

// NewDocumentRepo creates an in-memory DocumentRepository.
func NewDocumentRepo() port.DocumentRepository {
	return &documentRepo{
		docs:        make(map[uuid.UUID]*domain.FiscalDocument),
		corrections: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *documentRepo) Create(_ context.Context, doc *domain.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if _, exists := r.docs[doc.ID]; exists {
		return fmt.Errorf("documentRepo.Create: duplicate id %s", doc.ID)
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *documentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (r *documentRepo) List(_ context.Context, f port.DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.FiscalDocument
	for _, d := range r.docs {
		if matches(d, f) {
			matched = append(matched, *d.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= total {
		return []domain.FiscalDocument{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matches(d *domain.FiscalDocument, f port.DocumentFilter) bool {
	switch {
	case f.Type != "" && d.Type != f.Type:
		return false
	case f.State != "" && d.State != f.State:
		return false
	case f.CustomerID != nil && d.CustomerID != *f.CustomerID:
		return false
	case f.SeriesCode != "" && d.SeriesCode != f.SeriesCode:
		return false
	case f.IssuedFrom != nil && d.IssueDate.Before(*f.IssuedFrom):
		return false
	case f.IssuedTo != nil && d.IssueDate.After(*f.IssuedTo):
		return false
	}
	return true
}

func (r *documentRepo) ListPendingSubmission(_ context.Context, refusedBefore time.Time, limit int) ([]domain.FiscalDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.FiscalDocument
	for _, d := range r.docs {
		if d.State != domain.StateEmitted {
			continue
		}
		if d.SubmissionRefusedAt != nil && !d.SubmissionRefusedAt.Before(refusedBefore) {
			continue
		}
		out = append(out, *d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *documentRepo) UpdateDraft(_ context.Context, doc *domain.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	if !stored.IsDraft() {
		return domain.ErrDocumentFrozen
	}
	doc.UpdatedAt = time.Now().UTC()
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *documentRepo) DeleteDraft(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	if !stored.IsDraft() {
		return domain.ErrDocumentFrozen
	}
	delete(r.docs, id)
	return nil
}

func (r *documentRepo) MarkEmitted(_ context.Context, doc *domain.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	if !stored.IsDraft() {
		return &domain.StateError{From: stored.State, To: domain.StateEmitted}
	}
	doc.UpdatedAt = time.Now().UTC()
	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *documentRepo) UpdateLifecycle(_ context.Context, doc *domain.FiscalDocument, from domain.DocumentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	if stored.State != from {
		return &domain.StateError{From: stored.State, To: doc.State}
	}
	// Only lifecycle fields change; lines and totals stay as stored.
	next := stored.Clone()
	next.State = doc.State
	next.Authority = doc.Clone().Authority
	next.VoidReason = doc.VoidReason
	next.SubmittedAt = doc.SubmittedAt
	next.ResolvedAt = doc.ResolvedAt
	next.VoidedAt = doc.VoidedAt
	next.SubmissionRefusedAt = doc.SubmissionRefusedAt
	next.UpdatedAt = time.Now().UTC()
	r.docs[doc.ID] = next
	doc.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *documentRepo) LinkCorrection(_ context.Context, originalID, noteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[originalID]; !ok {
		return domain.ErrDocumentNotFound
	}
	for _, id := range r.corrections[originalID] {
		if id == noteID {
			return nil
		}
	}
	r.corrections[originalID] = append(r.corrections[originalID], noteID)
	return nil
}

func (r *documentRepo) ListCorrections(_ context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.FiscalDocument, 0, len(r.corrections[originalID]))
	for _, id := range r.corrections[originalID] {
		if d, ok := r.docs[id]; ok {
			out = append(out, *d.Clone())
		}
	}
	return out, nil
}
