package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// MockDocumentRepo is a mock implementation of port.DocumentRepository.
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *domain.FiscalDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalDocument), args.Error(1)
}

func (m *MockDocumentRepo) List(ctx context.Context, filter port.DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.FiscalDocument), args.Int(1), args.Error(2)
}

func (m *MockDocumentRepo) ListPendingSubmission(ctx context.Context, refusedBefore time.Time, limit int) ([]domain.FiscalDocument, error) {
	args := m.Called(ctx, refusedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalDocument), args.Error(1)
}

func (m *MockDocumentRepo) UpdateDraft(ctx context.Context, doc *domain.FiscalDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepo) MarkEmitted(ctx context.Context, doc *domain.FiscalDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) UpdateLifecycle(ctx context.Context, doc *domain.FiscalDocument, from domain.DocumentState) error {
	args := m.Called(ctx, doc, from)
	return args.Error(0)
}

func (m *MockDocumentRepo) LinkCorrection(ctx context.Context, originalID, noteID uuid.UUID) error {
	args := m.Called(ctx, originalID, noteID)
	return args.Error(0)
}

func (m *MockDocumentRepo) ListCorrections(ctx context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error) {
	args := m.Called(ctx, originalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalDocument), args.Error(1)
}
