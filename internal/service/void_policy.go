package service

import (
	"fmt"
	"time"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type windowVoidPolicy struct {
	window time.Duration
}

// NewWindowVoidPolicy allows voiding up to days after the issue date. Zero or
// a negative value disables the limit.
func NewWindowVoidPolicy(days int) port.VoidPolicy {
	return &windowVoidPolicy{window: time.Duration(days) * 24 * time.Hour}
}

func (p *windowVoidPolicy) CanVoid(doc *domain.FiscalDocument, now time.Time) error {
	if p.window <= 0 {
		return nil
	}
	deadline := doc.IssueDate.Add(p.window)
	if now.After(deadline) {
		return fmt.Errorf("issued %s, void allowed until %s: %w",
			doc.IssueDate.Format(time.DateOnly), deadline.Format(time.DateOnly), domain.ErrVoidWindowExpired)
	}
	return nil
}
