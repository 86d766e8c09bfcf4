package calc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// Aggregate reduces computed lines into document totals and verifies that the
// grand total reconciles with the sum of line totals. A mismatch is reported,
// never adjusted.
func Aggregate(lines []LineResult) (domain.Totals, error) {
	t := domain.Totals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxableBase:   decimal.Zero,
		TaxTotal:      decimal.Zero,
		ExemptTotal:   decimal.Zero,
		NotTaxedTotal: decimal.Zero,
		ExportTotal:   decimal.Zero,
		FreeTotal:     decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	lineSum := decimal.Zero

	for i := range lines {
		l := &lines[i]
		if !l.Total.Equal(l.Base.Add(l.Tax)) {
			return domain.Totals{}, &domain.ReconciliationError{
				Field: fmt.Sprintf("lines[%d].total", i), Expected: l.Base.Add(l.Tax), Actual: l.Total,
			}
		}
		lineSum = lineSum.Add(l.Total)

		if l.FreeOfCharge {
			if !l.Total.IsZero() {
				return domain.Totals{}, &domain.ReconciliationError{
					Field: fmt.Sprintf("lines[%d].total", i), Expected: decimal.Zero, Actual: l.Total,
				}
			}
			t.FreeTotal = t.FreeTotal.Add(l.ReferenceValue)
			continue
		}

		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.DiscountTotal = t.DiscountTotal.Add(l.DiscountAmount)
		t.TaxTotal = t.TaxTotal.Add(l.Tax)
		switch l.Class.Bucket {
		case domain.BucketTaxable:
			t.TaxableBase = t.TaxableBase.Add(l.Base)
		case domain.BucketExempt:
			t.ExemptTotal = t.ExemptTotal.Add(l.Base)
		case domain.BucketNotTaxed:
			t.NotTaxedTotal = t.NotTaxedTotal.Add(l.Base)
		case domain.BucketExport:
			t.ExportTotal = t.ExportTotal.Add(l.Base)
		default:
			return domain.Totals{}, fmt.Errorf("lines[%d]: unknown tax bucket %q", i, l.Class.Bucket)
		}
	}

	t.GrandTotal = t.TaxableBase.Add(t.TaxTotal).Add(t.ExemptTotal).Add(t.NotTaxedTotal).Add(t.ExportTotal)

	if err := Reconcile(t, lineSum); err != nil {
		return domain.Totals{}, err
	}
	return t, nil
}

// Reconcile checks the document identities against the sum of line totals:
// grand total == Σ line totals, and grand total == subtotal - discounts + tax.
func Reconcile(t domain.Totals, lineSum decimal.Decimal) error {
	if !domain.WithinEpsilon(t.GrandTotal, lineSum) {
		return &domain.ReconciliationError{Field: "grand_total", Expected: lineSum, Actual: t.GrandTotal}
	}
	viaDiscount := t.Subtotal.Sub(t.DiscountTotal).Add(t.TaxTotal)
	if !domain.WithinEpsilon(t.GrandTotal, viaDiscount) {
		return &domain.ReconciliationError{Field: "subtotal", Expected: t.GrandTotal, Actual: viaDiscount}
	}
	return nil
}

// VerifyDocument re-aggregates the stored line amounts of a document and checks
// them against its stored totals.
func VerifyDocument(doc *domain.FiscalDocument) error {
	results := make([]LineResult, 0, len(doc.Lines))
	for i := range doc.Lines {
		r, err := ResultFromItem(&doc.Lines[i])
		if err != nil {
			return err
		}
		results = append(results, r)
	}
	totals, err := Aggregate(results)
	if err != nil {
		return err
	}
	if !domain.WithinEpsilon(totals.GrandTotal, doc.Totals.GrandTotal) {
		return &domain.ReconciliationError{Field: "grand_total", Expected: totals.GrandTotal, Actual: doc.Totals.GrandTotal}
	}
	return nil
}
