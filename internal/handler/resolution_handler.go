package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fiscaldoc/internal/service"
)

// ResolutionHandler receives authority verdicts pushed over HTTP. The same
// verdicts may also arrive through the Pub/Sub subscriber.
type ResolutionHandler struct {
	documentService service.DocumentService
}

// NewResolutionHandler creates a new ResolutionHandler.
func NewResolutionHandler(documentService service.DocumentService) *ResolutionHandler {
	return &ResolutionHandler{documentService: documentService}
}

// Apply handles POST /api/v1/authority/resolutions
// @Summary Apply an authority resolution
// @Description Record the final verdict for a submitted document. Repeating the same verdict is a no-op.
// @Tags authority
// @Accept json
// @Produce json
// @Param request body service.ResolutionInput true "Resolution"
// @Success 200 {object} Response{data=DocumentView} "Resolution applied"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document not awaiting a resolution, or conflicting verdict"
// @Failure 422 {object} ErrorResponseBody "Validation failed"
// @Router /authority/resolutions [post]
func (h *ResolutionHandler) Apply(c *gin.Context) {
	var req service.ResolutionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	doc, err := h.documentService.ApplyAuthorityResolution(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newDocumentView(doc))
}
