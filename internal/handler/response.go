package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 response for work that will complete later.
func RespondAccepted(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusAccepted, APIResponse{
		Success: true,
		Data:    data,
		Error:   &APIError{Code: "SUBMISSION_PENDING", Message: msg},
	})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED", "request failed validation"
	case errors.Is(err, domain.ErrReconciliation):
		return http.StatusUnprocessableEntity, "RECONCILIATION_FAILED", "totals do not reconcile with line items"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_STATE", err.Error()
	case errors.Is(err, domain.ErrDocumentFrozen):
		return http.StatusConflict, "DOCUMENT_FROZEN", "document is no longer a draft"
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found"
	case errors.Is(err, domain.ErrSeriesNotFound):
		return http.StatusNotFound, "SERIES_NOT_FOUND", "series not found"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer not found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrSeriesExists):
		return http.StatusConflict, "SERIES_EXISTS", "series already exists"
	case errors.Is(err, domain.ErrSeriesExhausted):
		return http.StatusConflict, "SERIES_EXHAUSTED", "series has no numbers left"
	case errors.Is(err, domain.ErrSeriesInactive):
		return http.StatusConflict, "SERIES_INACTIVE", "series is inactive"
	case errors.Is(err, domain.ErrSeriesTypeMismatch):
		return http.StatusUnprocessableEntity, "SERIES_TYPE_MISMATCH", "series does not belong to the document type"
	case errors.Is(err, domain.ErrNoDefaultSeries):
		return http.StatusUnprocessableEntity, "NO_DEFAULT_SERIES", "no default series for the document type; pass one explicitly"
	case errors.Is(err, domain.ErrSeriesBusy):
		return http.StatusServiceUnavailable, "SERIES_BUSY", "series is under heavy contention; retry"
	case errors.Is(err, domain.ErrLockNotObtained):
		return http.StatusServiceUnavailable, "DOCUMENT_BUSY", "document is being modified; retry"
	case errors.Is(err, domain.ErrPaymentExceedsBalance):
		return http.StatusUnprocessableEntity, "PAYMENT_EXCEEDS_BALANCE", "payment exceeds the outstanding balance"
	case errors.Is(err, domain.ErrPaymentNotAllowed):
		return http.StatusConflict, "PAYMENT_NOT_ALLOWED", "document does not accept payments in its current state"
	case errors.Is(err, domain.ErrCorrectionNotAllowed):
		return http.StatusConflict, "CORRECTION_NOT_ALLOWED", "document cannot be corrected in its current state"
	case errors.Is(err, domain.ErrCreditExceedsOriginal):
		return http.StatusUnprocessableEntity, "CREDIT_EXCEEDS_ORIGINAL", "credit notes would exceed the original total"
	case errors.Is(err, domain.ErrVoidWindowExpired):
		return http.StatusConflict, "VOID_WINDOW_EXPIRED", "the void window for this document has expired"
	case errors.Is(err, domain.ErrSubmissionRefused):
		return http.StatusBadGateway, "SUBMISSION_REFUSED", "authority refused the document; correct it before it is retried"
	case errors.Is(err, domain.ErrSubmissionPending):
		return http.StatusAccepted, "SUBMISSION_PENDING", "authority unreachable; submission will be retried"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
// Validation errors carry the offending fields as details.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		middleware.GetLogger(c).WithError(err).Error("internal error")
	}
	apiErr := &APIError{Code: code, Message: msg}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		apiErr.Details = verr.Fields
	}
	c.JSON(status, APIResponse{Success: false, Error: apiErr})
}

// parseID reads a UUID path parameter. On failure the 400 response is already written.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
