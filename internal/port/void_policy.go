package port

import (
	"time"

	"fiscaldoc/internal/domain"
)

// VoidPolicy decides whether a document may still be voided at now.
type VoidPolicy interface {
	CanVoid(doc *domain.FiscalDocument, now time.Time) error
}
