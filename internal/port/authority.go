package port

import (
	"context"

	"fiscaldoc/internal/domain"
)

// SubmissionAck is the authority's answer to a submission. Resolution is set
// when the authority decided synchronously.
type SubmissionAck struct {
	Ticket     string
	Resolution *domain.AuthorityResponse
}

// AuthorityClient hands frozen, numbered documents to the tax authority.
// Submitting the same idempotency key twice must not create a second record
// on the authority side. An error matching domain.ErrSubmissionRefused means
// the authority declined the document outright; any other error is treated
// as transient.
type AuthorityClient interface {
	Submit(ctx context.Context, doc *domain.FiscalDocument, idempotencyKey string) (*SubmissionAck, error)
}
