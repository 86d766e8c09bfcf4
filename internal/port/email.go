package port

import (
	"context"

	"fiscaldoc/internal/domain"
)

// AcceptanceNotice is what the customer is told once the authority accepts a document.
type AcceptanceNotice struct {
	ToEmail          string
	ToName           string
	FullNumber       string
	DocumentType     domain.DocumentType
	Currency         string
	GrandTotal       string
	ConfirmationCode string
	QRPayload        string
}

// Notifier sends customer-facing notifications.
type Notifier interface {
	SendAcceptanceNotice(ctx context.Context, notice AcceptanceNotice) error
}
