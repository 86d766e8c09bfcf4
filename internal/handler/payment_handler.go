package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fiscaldoc/internal/service"
)

// PaymentHandler handles the payment ledger endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Register handles POST /api/v1/documents/:id/payments
// @Summary Register a payment
// @Description Apply a payment to an emitted document. Payments in another currency are converted before they are applied.
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param request body service.RegisterPaymentInput true "Payment"
// @Success 201 {object} Response{data=PaymentResultView} "Payment registered"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document does not accept payments"
// @Failure 422 {object} ErrorResponseBody "Validation failed or payment exceeds balance"
// @Failure 503 {object} ErrorResponseBody "Document busy"
// @Router /documents/{id}/payments [post]
func (h *PaymentHandler) Register(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.RegisterPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	req.DocumentID = id

	result, err := h.paymentService.RegisterPayment(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, newPaymentResultView(result))
}

// List handles GET /api/v1/documents/:id/payments
// @Summary List payments
// @Tags payments
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=PaymentListView} "Payments with settlement"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id}/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payments, settlement, err := h.paymentService.ListPayments(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	view := PaymentListView{
		Payments:   make([]PaymentView, len(payments)),
		Settlement: newSettlementView(settlement),
	}
	for i := range payments {
		view.Payments[i] = newPaymentView(&payments[i])
	}
	RespondOK(c, view)
}
