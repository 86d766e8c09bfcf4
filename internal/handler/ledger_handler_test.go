package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/handler"
	"fiscaldoc/internal/service"
	"fiscaldoc/mocks"
)

// --- Payments ---

func TestPaymentHandler_Register(t *testing.T) {
	mockSvc := new(mocks.MockPaymentService)
	h := handler.NewPaymentHandler(mockSvc)
	docID := uuid.New()

	result := &service.PaymentResult{
		Payment: &domain.Payment{
			ID:            uuid.New(),
			DocumentID:    docID,
			Amount:        decimal.NewFromInt(370),
			Currency:      "PEN",
			ExchangeRate:  decimal.RequireFromString("3.7"),
			AppliedAmount: decimal.NewFromInt(100),
			Method:        domain.PaymentMethod("transfer"),
			PaidOn:        time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		Settlement: domain.Settlement{
			Status:  domain.SettlementPartial,
			Total:   decimal.NewFromInt(200),
			Paid:    decimal.NewFromInt(100),
			Balance: decimal.NewFromInt(100),
		},
	}
	mockSvc.On("RegisterPayment", mock.Anything, mock.MatchedBy(func(in *service.RegisterPaymentInput) bool {
		return in.DocumentID == docID && in.Amount.Equal(decimal.NewFromInt(370)) && in.Method == "transfer"
	})).Return(result, nil)

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{
		"amount":        "370",
		"currency":      "PEN",
		"exchange_rate": "3.70",
		"method":        "transfer",
	})
	withID(c, docID.String())
	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	_, data := decode(t, w)
	payment := data["payment"].(map[string]interface{})
	assert.Equal(t, "100.00", payment["applied_amount"])
	assert.Equal(t, "2026-03-11", payment["paid_on"])
	settlement := data["settlement"].(map[string]interface{})
	assert.Equal(t, "partial", settlement["status"])
	assert.Equal(t, "100.00", settlement["balance"])
	mockSvc.AssertExpectations(t)
}

func TestPaymentHandler_Register_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrPaymentExceedsBalance, http.StatusUnprocessableEntity},
		{domain.ErrPaymentNotAllowed, http.StatusConflict},
		{domain.ErrLockNotObtained, http.StatusServiceUnavailable},
		{domain.ErrDocumentNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			mockSvc := new(mocks.MockPaymentService)
			h := handler.NewPaymentHandler(mockSvc)
			mockSvc.On("RegisterPayment", mock.Anything, mock.Anything).Return(nil, tc.err)

			c, w := newContext(http.MethodPost, "/", map[string]interface{}{"amount": "1", "method": "cash"})
			withID(c, uuid.NewString())
			h.Register(c)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestPaymentHandler_List(t *testing.T) {
	mockSvc := new(mocks.MockPaymentService)
	h := handler.NewPaymentHandler(mockSvc)
	docID := uuid.New()

	payments := []domain.Payment{
		{ID: uuid.New(), DocumentID: docID, Amount: decimal.NewFromInt(50), AppliedAmount: decimal.NewFromInt(50), Currency: "PEN", ExchangeRate: decimal.NewFromInt(1)},
		{ID: uuid.New(), DocumentID: docID, Amount: decimal.NewFromInt(68), AppliedAmount: decimal.NewFromInt(68), Currency: "PEN", ExchangeRate: decimal.NewFromInt(1)},
	}
	settlement := domain.Settlement{
		Status:  domain.SettlementPaid,
		Total:   decimal.NewFromInt(118),
		Paid:    decimal.NewFromInt(118),
		Balance: decimal.Zero,
	}
	mockSvc.On("ListPayments", mock.Anything, docID).Return(payments, settlement, nil)

	c, w := newContext(http.MethodGet, "/", nil)
	withID(c, docID.String())
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Len(t, data["payments"], 2)
	assert.Equal(t, "paid", data["settlement"].(map[string]interface{})["status"])
	assert.Equal(t, "0.00", data["settlement"].(map[string]interface{})["balance"])
}

// --- Resolutions ---

func TestResolutionHandler_Apply(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewResolutionHandler(mockSvc)
	doc := emittedDoc()
	doc.State = domain.StateAccepted

	mockSvc.On("ApplyAuthorityResolution", mock.Anything, mock.MatchedBy(func(in *service.ResolutionInput) bool {
		return in.DocumentID == doc.ID && in.Outcome == "accepted" && in.ConfirmationCode == "CDR-1"
	})).Return(doc, nil)

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{
		"document_id":       doc.ID,
		"outcome":           "accepted",
		"confirmation_code": "CDR-1",
	})
	h.Apply(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "accepted", data["state"])
}

func TestResolutionHandler_Apply_Conflict(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewResolutionHandler(mockSvc)
	mockSvc.On("ApplyAuthorityResolution", mock.Anything, mock.Anything).
		Return(nil, &domain.StateError{From: domain.StateAccepted, To: domain.StateRejected})

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{"document_id": uuid.New(), "outcome": "rejected"})
	h.Apply(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Series ---

func TestSeriesHandler_Create(t *testing.T) {
	mockSvc := new(mocks.MockSeriesService)
	h := handler.NewSeriesHandler(mockSvc)
	series := &domain.DocumentSeries{Code: "F002", DocumentType: domain.DocumentTypeInvoice, MaxNumber: 99999999, IsActive: true}

	mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in *service.CreateSeriesInput) bool {
		return in.Code == "F002" && in.DocumentType == "invoice"
	})).Return(series, nil)

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{"code": "F002", "document_type": "invoice"})
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSeriesHandler_Create_Exists(t *testing.T) {
	mockSvc := new(mocks.MockSeriesService)
	h := handler.NewSeriesHandler(mockSvc)
	mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrSeriesExists)

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{"code": "F001", "document_type": "invoice"})
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSeriesHandler_List_ByType(t *testing.T) {
	mockSvc := new(mocks.MockSeriesService)
	h := handler.NewSeriesHandler(mockSvc)
	mockSvc.On("List", mock.Anything, "receipt").Return([]domain.DocumentSeries{{Code: "B001"}}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/series?type=receipt", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSeriesHandler_SetActive(t *testing.T) {
	mockSvc := new(mocks.MockSeriesService)
	h := handler.NewSeriesHandler(mockSvc)
	mockSvc.On("SetActive", mock.Anything, "F001", false).Return(&domain.DocumentSeries{Code: "F001"}, nil)

	c, w := newContext(http.MethodPatch, "/", map[string]interface{}{"active": false})
	c.Params = append(c.Params, ginParam("code", "F001"))
	h.SetActive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSeriesHandler_SetActive_MissingFlag(t *testing.T) {
	mockSvc := new(mocks.MockSeriesService)
	h := handler.NewSeriesHandler(mockSvc)

	c, w := newContext(http.MethodPatch, "/", map[string]interface{}{})
	c.Params = append(c.Params, ginParam("code", "F001"))
	h.SetActive(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

// --- Health ---

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	t.Run("all reachable", func(t *testing.T) {
		h := handler.NewHealthHandler(map[string]handler.Checker{"database": ok, "redis": ok})
		c, w := newContext(http.MethodGet, "/readyz", nil)
		h.Readiness(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("one down", func(t *testing.T) {
		h := handler.NewHealthHandler(map[string]handler.Checker{"database": ok, "redis": down})
		c, w := newContext(http.MethodGet, "/readyz", nil)
		h.Readiness(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"unreachable"`)
		assert.Contains(t, w.Body.String(), `"database":"ok"`)
	})

	t.Run("no checks", func(t *testing.T) {
		h := handler.NewHealthHandler(nil)
		c, w := newContext(http.MethodGet, "/readyz", nil)
		h.Readiness(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// --- Error mapping ---

func TestMapDomainError_WrappedErrors(t *testing.T) {
	status, code, _ := handler.MapDomainError(errors.Join(errors.New("emit"), domain.ErrSeriesInactive))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SERIES_INACTIVE", code)

	status, _, _ = handler.MapDomainError(domain.NewValidationError("reason", "too short"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = handler.MapDomainError(domain.ErrSubmissionPending)
	require.Equal(t, http.StatusAccepted, status)

	status, code, _ = handler.MapDomainError(fmt.Errorf("%w: status 400", domain.ErrSubmissionRefused))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "SUBMISSION_REFUSED", code)
}
