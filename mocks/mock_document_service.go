package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/service"
)

// MockDocumentService is a mock implementation of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Calculate(ctx context.Context, input *service.CalculateInput) (*calc.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calc.Result), args.Error(1)
}

func (m *MockDocumentService) CreateDraft(ctx context.Context, input *service.CreateDraftInput) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, input)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) UpdateDraftLines(ctx context.Context, id uuid.UUID, lines []service.LineInput) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, id, lines)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) DiscardDraft(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, id)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, filter port.DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.FiscalDocument), args.Int(1), args.Error(2)
}

func (m *MockDocumentService) Emit(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, id)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) Submit(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, id)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) ApplyAuthorityResolution(ctx context.Context, input *service.ResolutionInput) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, input)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) Void(ctx context.Context, id uuid.UUID, reason string) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, id, reason)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) CreateCorrection(ctx context.Context, input *service.CreateCorrectionInput) (*domain.FiscalDocument, error) {
	args := m.Called(ctx, input)
	return docOrNil(args.Get(0)), args.Error(1)
}

func (m *MockDocumentService) ListCorrections(ctx context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error) {
	args := m.Called(ctx, originalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalDocument), args.Error(1)
}

func (m *MockDocumentService) History(ctx context.Context, id uuid.UUID) ([]domain.StateChange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StateChange), args.Error(1)
}

func (m *MockDocumentService) Submissions(ctx context.Context, id uuid.UUID) ([]domain.SubmissionAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubmissionAttempt), args.Error(1)
}

func (m *MockDocumentService) QRPayload(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) ArtifactURL(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Artifact(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func docOrNil(v interface{}) *domain.FiscalDocument {
	if v == nil {
		return nil
	}
	return v.(*domain.FiscalDocument)
}
