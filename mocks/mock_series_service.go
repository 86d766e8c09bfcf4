package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/service"
)

// MockSeriesService is a mock implementation of service.SeriesService.
type MockSeriesService struct {
	mock.Mock
}

func (m *MockSeriesService) Create(ctx context.Context, input *service.CreateSeriesInput) (*domain.DocumentSeries, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentSeries), args.Error(1)
}

func (m *MockSeriesService) Get(ctx context.Context, code string) (*domain.DocumentSeries, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentSeries), args.Error(1)
}

func (m *MockSeriesService) List(ctx context.Context, docType string) ([]domain.DocumentSeries, error) {
	args := m.Called(ctx, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentSeries), args.Error(1)
}

func (m *MockSeriesService) SetActive(ctx context.Context, code string, active bool) (*domain.DocumentSeries, error) {
	args := m.Called(ctx, code, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentSeries), args.Error(1)
}
