package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/authority"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/service"
	"fiscaldoc/mocks"
)

func TestSubmissionWorker_RunOnceSubmitsEveryEmittedDocument(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	docService := new(mocks.MockDocumentService)
	docs := []domain.FiscalDocument{
		{ID: uuid.New(), State: domain.StateEmitted},
		{ID: uuid.New(), State: domain.StateEmitted},
		{ID: uuid.New(), State: domain.StateEmitted},
	}

	docRepo.On("ListPendingSubmission", mock.Anything, mock.AnythingOfType("time.Time"), 10).Return(docs, nil).Once()
	docService.On("Submit", mock.Anything, docs[0].ID).Return(&docs[0], nil).Once()
	docService.On("Submit", mock.Anything, docs[1].ID).
		Return(&docs[1], domain.ErrSubmissionPending).Once()
	docService.On("Submit", mock.Anything, docs[2].ID).
		Return(nil, domain.ErrLockNotObtained).Once()

	w := service.NewSubmissionWorker(docRepo, docService, service.SubmissionWorkerConfig{
		PollInterval: time.Second,
		BatchSize:    10,
		Concurrency:  2,
	}, quietLogger())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	docService.AssertExpectations(t)
}

func TestSubmissionWorker_RunOnceListsWithRefusalCutoff(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	docService := new(mocks.MockDocumentService)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	docRepo.On("ListPendingSubmission", mock.Anything, now.Add(-30*time.Minute), 5).
		Return([]domain.FiscalDocument{}, nil).Once()

	w := service.NewSubmissionWorker(docRepo, docService, service.SubmissionWorkerConfig{
		PollInterval:   time.Second,
		BatchSize:      5,
		RefusalBackoff: 30 * time.Minute,
		Now:            func() time.Time { return now },
	}, quietLogger())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	docRepo.AssertExpectations(t)
}

func TestSubmissionWorker_RefusedDocumentDoesNotStarveQueue(t *testing.T) {
	f := setupDocumentService(t)
	ctx := context.Background()
	refused := f.emittedInvoice(t)
	later := f.emittedInvoice(t)

	f.authority.On("Submit", mock.Anything, mock.Anything, refused.ID.String()).
		Return(nil, &authority.StatusError{StatusCode: 400, Body: "invalid customer RUC"}).Once()
	f.authority.On("Submit", mock.Anything, mock.Anything, later.ID.String()).
		Return(&port.SubmissionAck{Ticket: "T-2"}, nil).Once()

	_, err := f.svc.Submit(ctx, refused.ID)
	require.ErrorIs(t, err, domain.ErrSubmissionRefused)

	clock := fixedNow.Add(time.Minute)
	w := service.NewSubmissionWorker(f.docs, f.svc, service.SubmissionWorkerConfig{
		PollInterval:   time.Second,
		BatchSize:      1,
		RefusalBackoff: time.Hour,
		Now:            func() time.Time { return clock },
	}, quietLogger())

	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.GetByID(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSubmitted, got.State)

	// Still cooling down, and nothing else is pending.
	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	f.authority.AssertNumberOfCalls(t, "Submit", 2)

	// Once the backoff has passed the refused document is offered again.
	f.authority.On("Submit", mock.Anything, mock.Anything, refused.ID.String()).
		Return(&port.SubmissionAck{Ticket: "T-3"}, nil).Once()
	clock = fixedNow.Add(2 * time.Hour)

	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err = f.svc.GetByID(ctx, refused.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSubmitted, got.State)
	f.authority.AssertExpectations(t)
}

func TestSubmissionWorker_RunOnceReportsListFailure(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	docService := new(mocks.MockDocumentService)
	docRepo.On("ListPendingSubmission", mock.Anything, mock.AnythingOfType("time.Time"), 1).Return(nil, errors.New("db down")).Once()

	w := service.NewSubmissionWorker(docRepo, docService, service.SubmissionWorkerConfig{PollInterval: time.Second}, quietLogger())

	_, err := w.RunOnce(context.Background())
	assert.Error(t, err)
	docService.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmissionWorker_StartStopsOnCancel(t *testing.T) {
	docRepo := new(mocks.MockDocumentRepo)
	docService := new(mocks.MockDocumentService)
	docRepo.On("ListPendingSubmission", mock.Anything, mock.Anything, mock.Anything).Return([]domain.FiscalDocument{}, nil)

	w := service.NewSubmissionWorker(docRepo, docService, service.SubmissionWorkerConfig{PollInterval: 5 * time.Millisecond}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
