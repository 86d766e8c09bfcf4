package port

import (
	"context"

	"fiscaldoc/internal/domain"
)

// SeriesStore is the authoritative holder of series counters. Every
// implementation must make CompareAndIncrement atomic across all processes
// sharing the store.
type SeriesStore interface {
	Create(ctx context.Context, series *domain.DocumentSeries) error
	Get(ctx context.Context, code string) (*domain.DocumentSeries, error)
	GetDefault(ctx context.Context, docType domain.DocumentType) (*domain.DocumentSeries, error)
	List(ctx context.Context, docType domain.DocumentType) ([]domain.DocumentSeries, error)
	SetActive(ctx context.Context, code string, active bool) error
	// CompareAndIncrement bumps the counter by one only if it still equals
	// expected and is below the series maximum. It reports false on conflict.
	CompareAndIncrement(ctx context.Context, code string, expected int64) (bool, error)
}
