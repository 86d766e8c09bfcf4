package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/service"
)

// MockPaymentService is a mock implementation of service.PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RegisterPayment(ctx context.Context, input *service.RegisterPaymentInput) (*service.PaymentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentResult), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, documentID uuid.UUID) ([]domain.Payment, domain.Settlement, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(domain.Settlement), args.Error(2)
	}
	return args.Get(0).([]domain.Payment), args.Get(1).(domain.Settlement), args.Error(2)
}
