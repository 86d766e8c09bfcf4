package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// Request is a full cart ready for calculation.
type Request struct {
	Currency         string
	ExchangeRate     decimal.Decimal
	PriceIncludesTax bool
	Lines            []LineInput
}

// Result is the complete computed breakdown of a cart.
type Result struct {
	Currency     string
	ExchangeRate decimal.Decimal
	Lines        []LineResult
	Totals       domain.Totals
	// HomeTotals is set only for foreign-currency carts.
	HomeTotals *domain.Totals
}

// Calculate validates the cart, computes every line and aggregates the totals.
// Every offending line is reported, not just the first.
func (c *Calculator) Calculate(req Request) (*Result, error) {
	verr := &domain.ValidationError{}

	rate, err := ResolveExchangeRate(req.Currency, c.homeCurrency, req.ExchangeRate)
	if err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		verr.Merge("", ve)
	}
	if len(req.Lines) == 0 {
		verr.Add("lines", "at least one line is required")
	}

	results := make([]LineResult, 0, len(req.Lines))
	for i, in := range req.Lines {
		in.PriceIncludesTax = req.PriceIncludesTax
		if lv := ValidateLine(in); lv.HasErrors() {
			verr.Merge(fmt.Sprintf("lines[%d]", i), lv)
			continue
		}
		r, err := c.Line(in)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	totals, err := Aggregate(results)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Currency:     req.Currency,
		ExchangeRate: rate,
		Lines:        results,
		Totals:       totals,
	}
	if req.Currency != c.homeCurrency {
		home := ToHome(totals, rate)
		res.HomeTotals = &home
	}
	return res, nil
}

// Recalculate computes the derived amounts of a document's lines in place and
// refreshes its totals.
func (c *Calculator) Recalculate(doc *domain.FiscalDocument) error {
	req := Request{
		Currency:         doc.Currency,
		ExchangeRate:     doc.ExchangeRate,
		PriceIncludesTax: doc.PriceIncludesTax,
		Lines:            make([]LineInput, len(doc.Lines)),
	}
	for i := range doc.Lines {
		req.Lines[i] = InputFromItem(&doc.Lines[i], doc.PriceIncludesTax)
	}
	res, err := c.Calculate(req)
	if err != nil {
		return err
	}
	for i := range doc.Lines {
		doc.Lines[i].Position = i + 1
		res.Lines[i].ApplyTo(&doc.Lines[i])
	}
	doc.ExchangeRate = res.ExchangeRate
	doc.Totals = res.Totals
	return nil
}
