package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/handler"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/service"
	"fiscaldoc/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newDocumentHandler() (*handler.DocumentHandler, *mocks.MockDocumentService) {
	mockSvc := new(mocks.MockDocumentService)
	return handler.NewDocumentHandler(mockSvc), mockSvc
}

func newContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		c.Request, _ = http.NewRequest(method, target, http.NoBody)
		return c, w
	}
	raw, _ := json.Marshal(body)
	c.Request, _ = http.NewRequest(method, target, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func withID(c *gin.Context, id string) {
	c.Params = gin.Params{{Key: "id", Value: id}}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (handler.APIResponse, map[string]interface{}) {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]interface{})
	return resp, data
}

func emittedDoc() *domain.FiscalDocument {
	n := int64(11)
	return &domain.FiscalDocument{
		ID:           uuid.New(),
		Type:         domain.DocumentTypeInvoice,
		SeriesCode:   "F001",
		Number:       &n,
		Currency:     "PEN",
		ExchangeRate: decimal.NewFromInt(1),
		IssueDate:    time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CustomerID:   uuid.New(),
		State:        domain.StateEmitted,
		Totals: domain.Totals{
			Subtotal:    decimal.NewFromInt(100),
			TaxableBase: decimal.NewFromInt(100),
			TaxTotal:    decimal.NewFromInt(18),
			GrandTotal:  decimal.NewFromInt(118),
		},
	}
}

// --- Create ---

func TestDocumentHandler_Create_Success(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	doc.State = domain.StateDraft
	doc.Number = nil

	mockSvc.On("CreateDraft", mock.Anything, mock.MatchedBy(func(in *service.CreateDraftInput) bool {
		return in.DocumentType == "invoice" && len(in.Lines) == 1 && in.Lines[0].UnitPrice.Equal(decimal.NewFromInt(118))
	})).Return(doc, nil)

	c, w := newContext(http.MethodPost, "/api/v1/documents", map[string]interface{}{
		"document_type":      "invoice",
		"currency":           "PEN",
		"price_includes_tax": true,
		"customer_id":        doc.CustomerID,
		"lines": []map[string]interface{}{
			{"description": "Widget", "unit": "NIU", "quantity": "1", "unit_price": "118", "affectation": "10"},
		},
	})
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp, data := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "draft", data["state"])
	assert.Empty(t, data["full_number"])
	totals := data["totals"].(map[string]interface{})
	assert.Equal(t, "118.00", totals["grand_total"])
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Create_MalformedBody(t *testing.T) {
	h, _ := newDocumentHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Create_ValidationDetails(t *testing.T) {
	h, mockSvc := newDocumentHandler()

	verr := domain.NewValidationError("lines[0].quantity", "must be greater than zero")
	verr.Add("customer_id", "is required")
	mockSvc.On("CreateDraft", mock.Anything, mock.Anything).Return(nil, verr)

	c, w := newContext(http.MethodPost, "/api/v1/documents", map[string]interface{}{"document_type": "invoice"})
	h.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp, _ := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "lines[0].quantity", resp.Error.Details[0].Field)
}

// --- GetByID / List ---

func TestDocumentHandler_GetByID(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	mockSvc.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	c, w := newContext(http.MethodGet, "/api/v1/documents/"+doc.ID.String(), nil)
	withID(c, doc.ID.String())
	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "F001-00000011", data["full_number"])
	assert.Equal(t, "2026-03-10", data["issue_date"])
	assert.Equal(t, "invoice", data["type_name"])
}

func TestDocumentHandler_GetByID_InvalidID(t *testing.T) {
	h, _ := newDocumentHandler()

	c, w := newContext(http.MethodGet, "/api/v1/documents/nope", nil)
	withID(c, "nope")
	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_GetByID_NotFound(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	mockSvc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrDocumentNotFound)

	c, w := newContext(http.MethodGet, "/api/v1/documents/"+id.String(), nil)
	withID(c, id.String())
	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_List_Filters(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	customerID := uuid.New()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mockSvc.On("List", mock.Anything, mock.MatchedBy(func(f port.DocumentFilter) bool {
		return f.Type == domain.DocumentTypeCreditNote &&
			f.State == domain.StateAccepted &&
			f.CustomerID != nil && *f.CustomerID == customerID &&
			f.SeriesCode == "FC01" &&
			f.IssuedFrom != nil && f.IssuedFrom.Equal(from) &&
			f.IssuedTo == nil
	}), 10, 5).Return([]domain.FiscalDocument{*emittedDoc()}, 11, nil)

	c, w := newContext(http.MethodGet,
		"/api/v1/documents?type=07&state=accepted&series=FC01&from=2026-03-01&offset=10&limit=5&customer_id="+customerID.String(), nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp, _ := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 11, resp.Meta.Total)
	assert.Equal(t, 10, resp.Meta.Offset)
	assert.Equal(t, 5, resp.Meta.Limit)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_InvalidFilters(t *testing.T) {
	cases := []string{
		"/api/v1/documents?type=quote",
		"/api/v1/documents?state=paid",
		"/api/v1/documents?customer_id=abc",
		"/api/v1/documents?from=10/03/2026",
	}
	for _, target := range cases {
		t.Run(target, func(t *testing.T) {
			h, mockSvc := newDocumentHandler()
			c, w := newContext(http.MethodGet, target, nil)
			h.List(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// --- Lifecycle ---

func TestDocumentHandler_Emit(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	mockSvc.On("Emit", mock.Anything, doc.ID).Return(doc, nil)

	c, w := newContext(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/emit", nil)
	withID(c, doc.ID.String())
	h.Emit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "emitted", data["state"])
}

func TestDocumentHandler_Emit_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already emitted", &domain.StateError{From: domain.StateEmitted, To: domain.StateEmitted}, http.StatusConflict, "INVALID_STATE"},
		{"series exhausted", domain.ErrSeriesExhausted, http.StatusConflict, "SERIES_EXHAUSTED"},
		{"contention", domain.ErrSeriesBusy, http.StatusServiceUnavailable, "SERIES_BUSY"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mockSvc := newDocumentHandler()
			id := uuid.New()
			mockSvc.On("Emit", mock.Anything, id).Return(nil, tc.err)

			c, w := newContext(http.MethodPost, "/", nil)
			withID(c, id.String())
			h.Emit(c)

			assert.Equal(t, tc.status, w.Code)
			resp, _ := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestDocumentHandler_Submit_Pending(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	mockSvc.On("Submit", mock.Anything, doc.ID).
		Return(doc, errors.Join(domain.ErrSubmissionPending, errors.New("connection refused")))

	c, w := newContext(http.MethodPost, "/", nil)
	withID(c, doc.ID.String())
	h.Submit(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	resp, data := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "SUBMISSION_PENDING", resp.Error.Code)
	assert.Equal(t, "emitted", data["state"])
}

func TestDocumentHandler_Submit_RefusedIsNotAccepted(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	mockSvc.On("Submit", mock.Anything, doc.ID).
		Return(doc, errors.Join(domain.ErrSubmissionRefused, errors.New("authority API error (status 400): bad RUC")))

	c, w := newContext(http.MethodPost, "/", nil)
	withID(c, doc.ID.String())
	h.Submit(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp, _ := decode(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SUBMISSION_REFUSED", resp.Error.Code)
}

func TestDocumentHandler_Submit_Success(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	doc.State = domain.StateSubmitted
	mockSvc.On("Submit", mock.Anything, doc.ID).Return(doc, nil)

	c, w := newContext(http.MethodPost, "/", nil)
	withID(c, doc.ID.String())
	h.Submit(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentHandler_Void(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	doc := emittedDoc()
	doc.State = domain.StateVoided
	doc.VoidReason = "customer cancelled"
	mockSvc.On("Void", mock.Anything, doc.ID, "customer cancelled").Return(doc, nil)

	c, w := newContext(http.MethodPost, "/", map[string]string{"reason": "customer cancelled"})
	withID(c, doc.ID.String())
	h.Void(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "voided", data["state"])
}

func TestDocumentHandler_Void_MissingReason(t *testing.T) {
	h, _ := newDocumentHandler()

	c, w := newContext(http.MethodPost, "/", map[string]string{})
	withID(c, uuid.NewString())
	h.Void(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Void_WindowExpired(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	mockSvc.On("Void", mock.Anything, id, mock.Anything).Return(nil, domain.ErrVoidWindowExpired)

	c, w := newContext(http.MethodPost, "/", map[string]string{"reason": "late cancellation"})
	withID(c, id.String())
	h.Void(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Corrections ---

func TestDocumentHandler_CreateCorrection_TakesOriginalFromPath(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	originalID := uuid.New()
	note := emittedDoc()
	note.Type = domain.DocumentTypeCreditNote
	note.SeriesCode = "FC01"
	note.State = domain.StateDraft
	note.Number = nil
	note.Correction = &domain.CorrectionRef{OriginalID: originalID, ReasonCode: "01", Reason: "full cancellation"}

	mockSvc.On("CreateCorrection", mock.Anything, mock.MatchedBy(func(in *service.CreateCorrectionInput) bool {
		return in.OriginalID == originalID && in.DocumentType == "credit-note"
	})).Return(note, nil)

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{
		"original_id":   uuid.NewString(),
		"document_type": "credit-note",
		"reason_code":   "01",
		"reason":        "full cancellation",
	})
	withID(c, originalID.String())
	h.CreateCorrection(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_CreateCorrection_CreditCap(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	mockSvc.On("CreateCorrection", mock.Anything, mock.Anything).Return(nil, domain.ErrCreditExceedsOriginal)

	c, w := newContext(http.MethodPost, "/", map[string]interface{}{"document_type": "07"})
	withID(c, uuid.NewString())
	h.CreateCorrection(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp, _ := decode(t, w)
	assert.Equal(t, "CREDIT_EXCEEDS_ORIGINAL", resp.Error.Code)
}

// --- Read-only projections ---

func TestDocumentHandler_QR(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	payload := "20000000001|01|F001|11|18.00|118.00|2026-03-10|6|20100070971|"
	mockSvc.On("QRPayload", mock.Anything, id).Return(payload, nil)

	c, w := newContext(http.MethodGet, "/", nil)
	withID(c, id.String())
	h.QR(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, payload, data["payload"])
}

func TestDocumentHandler_History(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	changes := []domain.StateChange{
		{DocumentID: id, ToState: domain.StateDraft},
		{DocumentID: id, FromState: domain.StateDraft, ToState: domain.StateEmitted},
	}
	mockSvc.On("History", mock.Anything, id).Return(changes, nil)

	c, w := newContext(http.MethodGet, "/", nil)
	withID(c, id.String())
	h.History(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp, _ := decode(t, w)
	assert.Len(t, resp.Data, 2)
}

// --- Calculations ---

func TestCalculationHandler_Calculate(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewCalculationHandler(mockSvc)

	home := domain.Totals{GrandTotal: decimal.RequireFromString("442.5")}
	result := &calc.Result{
		Currency:     "USD",
		ExchangeRate: decimal.RequireFromString("3.75"),
		Lines: []calc.LineResult{{
			Class:    domain.TaxClass{Name: "taxable", Bucket: domain.BucketTaxable},
			Subtotal: decimal.NewFromInt(100),
			Base:     decimal.NewFromInt(100),
			Tax:      decimal.NewFromInt(18),
			Total:    decimal.NewFromInt(118),
		}},
		Totals:     domain.Totals{GrandTotal: decimal.NewFromInt(118)},
		HomeTotals: &home,
	}
	mockSvc.On("Calculate", mock.Anything, mock.MatchedBy(func(in *service.CalculateInput) bool {
		return in.Currency == "USD" && in.ExchangeRate.Equal(decimal.RequireFromString("3.75"))
	})).Return(result, nil)

	c, w := newContext(http.MethodPost, "/api/v1/calculations", map[string]interface{}{
		"currency":      "USD",
		"exchange_rate": "3.75",
		"lines": []map[string]interface{}{
			{"description": "Widget", "unit": "NIU", "quantity": "1", "unit_price": "100", "affectation": "10"},
		},
	})
	h.Calculate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "118.00", data["totals"].(map[string]interface{})["grand_total"])
	assert.Equal(t, "442.50", data["home_totals"].(map[string]interface{})["grand_total"])
	line := data["lines"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "18.00", line["tax"])
	assert.EqualValues(t, 1, line["position"])
}

func TestDocumentHandler_Artifact(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	mockSvc.On("ArtifactURL", mock.Anything, id).Return("https://signed.example/doc", nil).Once()

	c, w := newContext(http.MethodGet, "/", nil)
	withID(c, id.String())
	h.Artifact(c)

	assert.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "https://signed.example/doc", data["url"])
	mockSvc.AssertNotCalled(t, "Artifact", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Artifact_Inline(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	body := []byte(`{"state":"accepted"}`)
	mockSvc.On("Artifact", mock.Anything, id).Return(body, nil).Once()

	c, w := newContext(http.MethodGet, "/?inline=1", nil)
	withID(c, id.String())
	h.Artifact(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, string(body), w.Body.String())
	mockSvc.AssertNotCalled(t, "ArtifactURL", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Artifact_InlineMissing(t *testing.T) {
	h, mockSvc := newDocumentHandler()
	id := uuid.New()
	mockSvc.On("Artifact", mock.Anything, id).Return(nil, domain.ErrNotFound).Once()

	c, w := newContext(http.MethodGet, "/?inline=1", nil)
	withID(c, id.String())
	h.Artifact(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func ginParam(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}
