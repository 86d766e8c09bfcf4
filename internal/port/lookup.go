package port

import (
	"context"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
)

// CustomerLookup is the read-only customer directory.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
}

// ProductLookup is the read-only product catalogue.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}
