package authority_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fiscaldoc/internal/authority"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/service"
	"fiscaldoc/mocks"
)

func TestMessageHandler_Handle_Applied(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := authority.NewMessageHandler(mockSvc, quietLogger())
	docID := uuid.New()

	mockSvc.On("ApplyAuthorityResolution", mock.Anything, mock.MatchedBy(func(in *service.ResolutionInput) bool {
		return in.DocumentID == docID &&
			in.Outcome == "observed" &&
			len(in.Observations) == 1 &&
			in.Observations[0] == "4252: address"
	})).Return(&domain.FiscalDocument{ID: docID, State: domain.StateObserved}, nil)

	data := []byte(`{"document_id":"` + docID.String() + `","outcome":"observed","ticket":"T-1","observations":["4252: address"]}`)
	assert.Equal(t, authority.Ack, h.Handle(context.Background(), "m-1", data))
	mockSvc.AssertExpectations(t)
}

func TestMessageHandler_Handle_Dispositions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want authority.Disposition
	}{
		{"validation", domain.NewValidationError("outcome", "is required"), authority.Ack},
		{"unknown document", domain.ErrDocumentNotFound, authority.Ack},
		{"state conflict", &domain.StateError{From: domain.StateAccepted, To: domain.StateRejected}, authority.Ack},
		{"lock busy", domain.ErrLockNotObtained, authority.Nack},
		{"storage down", errors.New("connection refused"), authority.Nack},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := new(mocks.MockDocumentService)
			h := authority.NewMessageHandler(mockSvc, quietLogger())
			mockSvc.On("ApplyAuthorityResolution", mock.Anything, mock.Anything).Return(nil, tc.err)

			data := []byte(`{"document_id":"` + uuid.NewString() + `","outcome":"accepted"}`)
			assert.Equal(t, tc.want, h.Handle(context.Background(), "m-2", data))
		})
	}
}

func TestMessageHandler_Handle_UndecodableIsDropped(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := authority.NewMessageHandler(mockSvc, quietLogger())

	assert.Equal(t, authority.Ack, h.Handle(context.Background(), "m-3", []byte("not json")))
	mockSvc.AssertNotCalled(t, "ApplyAuthorityResolution", mock.Anything, mock.Anything)
}
