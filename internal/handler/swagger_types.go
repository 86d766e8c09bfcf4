package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

import "fiscaldoc/internal/service"

// --- Request Types ---

// UpdateLinesRequest replaces the lines of a draft.
type UpdateLinesRequest struct {
	Lines []service.LineInput `json:"lines" binding:"required"`
}

// VoidRequest carries the reason for voiding a document.
type VoidRequest struct {
	Reason string `json:"reason" binding:"required" example:"customer cancelled the order"`
}

// SetSeriesActiveRequest toggles a series.
type SetSeriesActiveRequest struct {
	Active *bool `json:"active" binding:"required" example:"false"`
}

// --- Response Types ---

// QRResponse carries the QR payload of an emitted document.
type QRResponse struct {
	Payload string `json:"payload" example:"20000000001|01|F001|11|18.00|118.00|2026-03-10|6|20100070971|"`
}

// ArtifactResponse carries a time-limited download link.
type ArtifactResponse struct {
	URL string `json:"url" example:"https://bucket.s3.amazonaws.com/receipts/F001-00000011.json?X-Amz-Signature=..."`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message" example:"draft discarded"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
