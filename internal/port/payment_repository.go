package port

import (
	"context"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
)

// PaymentRepository defines the contract for payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Payment, error)
}
