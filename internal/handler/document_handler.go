package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/service"
)

// DocumentHandler handles fiscal document endpoints.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Create handles POST /api/v1/documents
// @Summary Create a draft
// @Description Open an invoice or receipt draft. Totals are calculated immediately.
// @Tags documents
// @Accept json
// @Produce json
// @Param request body service.CreateDraftInput true "Draft details"
// @Success 201 {object} Response{data=DocumentView} "Draft created"
// @Failure 400 {object} ErrorResponseBody "Malformed body"
// @Failure 404 {object} ErrorResponseBody "Customer, product or series not found"
// @Failure 422 {object} ErrorResponseBody "Validation failed"
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.CreateDraftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	doc, err := h.documentService.CreateDraft(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, newDocumentView(doc))
}

// GetByID handles GET /api/v1/documents/:id
// @Summary Get document by ID
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=DocumentView} "Document details"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentView(doc))
}

// List handles GET /api/v1/documents
// @Summary List documents
// @Description List documents with optional type, state, customer, series and issue date filters
// @Tags documents
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Param type query string false "Document type (code or name)"
// @Param state query string false "Lifecycle state"
// @Param customer_id query string false "Customer ID"
// @Param series query string false "Series code"
// @Param from query string false "Issued on or after (YYYY-MM-DD)"
// @Param to query string false "Issued on or before (YYYY-MM-DD)"
// @Success 200 {object} Response{data=[]DocumentView,meta=PagMeta} "List of documents"
// @Failure 400 {object} ErrorResponseBody "Invalid filter"
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter, ok := parseDocumentFilter(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	docs, total, err := h.documentService.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, newDocumentViews(docs), PagMeta{Total: total, Offset: offset, Limit: limit})
}

func parseDocumentFilter(c *gin.Context) (port.DocumentFilter, bool) {
	var filter port.DocumentFilter
	if v := c.Query("type"); v != "" {
		t, ok := domain.ParseDocumentType(v)
		if !ok {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", "unknown document type")
			return filter, false
		}
		filter.Type = t
	}
	if v := c.Query("state"); v != "" {
		s := domain.DocumentState(v)
		if !domain.ValidDocumentStates[s] {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", "unknown state")
			return filter, false
		}
		filter.State = s
	}
	if v := c.Query("customer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", "invalid customer_id")
			return filter, false
		}
		filter.CustomerID = &id
	}
	filter.SeriesCode = c.Query("series")
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.IssuedFrom}, {"to", &filter.IssuedTo}} {
		v := c.Query(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", p.key+" must be YYYY-MM-DD")
			return filter, false
		}
		*p.dst = &t
	}
	return filter, true
}

// UpdateLines handles PUT /api/v1/documents/:id/lines
// @Summary Replace draft lines
// @Description Replace the line items of a draft and recalculate its totals
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param request body UpdateLinesRequest true "New lines"
// @Success 200 {object} Response{data=DocumentView} "Draft updated"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document is no longer a draft"
// @Failure 422 {object} ErrorResponseBody "Validation failed"
// @Router /documents/{id}/lines [put]
func (h *DocumentHandler) UpdateLines(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	doc, err := h.documentService.UpdateDraftLines(c.Request.Context(), id, req.Lines)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentView(doc))
}

// Discard handles DELETE /api/v1/documents/:id
// @Summary Discard a draft
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=MessageResponse} "Draft discarded"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document is no longer a draft"
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Discard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.DiscardDraft(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "draft discarded"})
}

// Emit handles POST /api/v1/documents/:id/emit
// @Summary Emit a draft
// @Description Validate the draft, allocate the next number of its series and freeze it
// @Tags lifecycle
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=DocumentView} "Document emitted"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Invalid state or series exhausted"
// @Failure 422 {object} ErrorResponseBody "Validation failed"
// @Failure 503 {object} ErrorResponseBody "Series contention"
// @Router /documents/{id}/emit [post]
func (h *DocumentHandler) Emit(c *gin.Context) {
	h.transition(c, h.documentService.Emit)
}

// Submit handles POST /api/v1/documents/:id/submit
// @Summary Submit to the tax authority
// @Description Hand an emitted document to the authority. When the authority is
// @Description unreachable the document stays emitted and 202 is returned.
// @Tags lifecycle
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=DocumentView} "Document submitted"
// @Success 202 {object} Response{data=DocumentView} "Submission pending"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Invalid state"
// @Failure 502 {object} ErrorResponseBody "Authority refused the document"
// @Router /documents/{id}/submit [post]
func (h *DocumentHandler) Submit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.Submit(c.Request.Context(), id)
	if errors.Is(err, domain.ErrSubmissionPending) && doc != nil {
		RespondAccepted(c, newDocumentView(doc), "authority unreachable; submission will be retried")
		return
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentView(doc))
}

// Void handles POST /api/v1/documents/:id/void
// @Summary Void a document
// @Tags lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param request body VoidRequest true "Void reason"
// @Success 200 {object} Response{data=DocumentView} "Document voided"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Invalid state or void window expired"
// @Failure 422 {object} ErrorResponseBody "Reason too short"
// @Router /documents/{id}/void [post]
func (h *DocumentHandler) Void(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "reason is required")
		return
	}

	doc, err := h.documentService.Void(c.Request.Context(), id, req.Reason)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentView(doc))
}

// CreateCorrection handles POST /api/v1/documents/:id/corrections
// @Summary Create a credit or debit note
// @Description Open a note draft against an emitted document. Without lines the original lines are carried over.
// @Tags corrections
// @Accept json
// @Produce json
// @Param id path string true "Original document ID (UUID)"
// @Param request body service.CreateCorrectionInput true "Note details"
// @Success 201 {object} Response{data=DocumentView} "Note draft created"
// @Failure 404 {object} ErrorResponseBody "Original not found"
// @Failure 409 {object} ErrorResponseBody "Original cannot be corrected"
// @Failure 422 {object} ErrorResponseBody "Validation failed or credit exceeds original"
// @Router /documents/{id}/corrections [post]
func (h *DocumentHandler) CreateCorrection(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.CreateCorrectionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	req.OriginalID = id

	note, err := h.documentService.CreateCorrection(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, newDocumentView(note))
}

// ListCorrections handles GET /api/v1/documents/:id/corrections
// @Summary List notes issued against a document
// @Tags corrections
// @Produce json
// @Param id path string true "Original document ID (UUID)"
// @Success 200 {object} Response{data=[]DocumentView} "Notes"
// @Failure 404 {object} ErrorResponseBody "Original not found"
// @Router /documents/{id}/corrections [get]
func (h *DocumentHandler) ListCorrections(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	notes, err := h.documentService.ListCorrections(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentViews(notes))
}

// History handles GET /api/v1/documents/:id/history
// @Summary Lifecycle history
// @Tags lifecycle
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=[]domain.StateChange} "State changes, oldest first"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id}/history [get]
func (h *DocumentHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	changes, err := h.documentService.History(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, changes)
}

// Submissions handles GET /api/v1/documents/:id/submissions
// @Summary Authority submission attempts
// @Tags lifecycle
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=[]domain.SubmissionAttempt} "Attempts, oldest first"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id}/submissions [get]
func (h *DocumentHandler) Submissions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	attempts, err := h.documentService.Submissions(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, attempts)
}

// QR handles GET /api/v1/documents/:id/qr
// @Summary QR payload
// @Description The pipe-delimited payload printed as a QR code on the representation
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=QRResponse} "QR payload"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document has no number yet"
// @Router /documents/{id}/qr [get]
func (h *DocumentHandler) QR(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payload, err := h.documentService.QRPayload(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, QRResponse{Payload: payload})
}

// Artifact handles GET /api/v1/documents/:id/artifact
// @Summary Download link for the archived authority receipt
// @Description With inline=1 the archived JSON is returned instead of a link.
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param inline query string false "Return the artifact body" Enums(1)
// @Success 200 {object} Response{data=ArtifactResponse} "Presigned URL"
// @Failure 404 {object} ErrorResponseBody "Document or artifact not found"
// @Router /documents/{id}/artifact [get]
func (h *DocumentHandler) Artifact(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if c.Query("inline") == "1" {
		body, err := h.documentService.Artifact(c.Request.Context(), id)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	url, err := h.documentService.ArtifactURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, ArtifactResponse{URL: url})
}

// transition runs a body-less lifecycle operation on the :id document.
func (h *DocumentHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doc, err := op(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentView(doc))
}
