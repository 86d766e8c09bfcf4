package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/port"
)

// MockNotifier is a mock implementation of port.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendAcceptanceNotice(ctx context.Context, notice port.AcceptanceNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}
