package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// MockAuthorityClient is a mock implementation of port.AuthorityClient.
type MockAuthorityClient struct {
	mock.Mock
}

func (m *MockAuthorityClient) Submit(ctx context.Context, doc *domain.FiscalDocument, idempotencyKey string) (*port.SubmissionAck, error) {
	args := m.Called(ctx, doc, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.SubmissionAck), args.Error(1)
}
