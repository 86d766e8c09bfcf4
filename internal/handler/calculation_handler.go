package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fiscaldoc/internal/service"
)

// CalculationHandler serves calculation previews. Nothing is persisted.
type CalculationHandler struct {
	documentService service.DocumentService
}

// NewCalculationHandler creates a new CalculationHandler.
func NewCalculationHandler(documentService service.DocumentService) *CalculationHandler {
	return &CalculationHandler{documentService: documentService}
}

// Calculate handles POST /api/v1/calculations
// @Summary Preview document totals
// @Description Run the line calculator and cart aggregator over a set of lines without creating a document.
// @Description Foreign-currency carts also get totals converted to the home currency.
// @Tags calculations
// @Accept json
// @Produce json
// @Param request body service.CalculateInput true "Cart"
// @Success 200 {object} Response{data=CalculationView} "Calculated totals"
// @Failure 400 {object} ErrorResponseBody "Malformed body"
// @Failure 422 {object} ErrorResponseBody "Validation failed"
// @Router /calculations [post]
func (h *CalculationHandler) Calculate(c *gin.Context) {
	var req service.CalculateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	result, err := h.documentService.Calculate(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newCalculationView(result))
}
