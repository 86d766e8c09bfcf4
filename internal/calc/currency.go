package calc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// ResolveExchangeRate validates the currency of a document and returns the
// effective exchange rate. Home-currency documents always carry exactly 1; an
// unset rate is read as 1. Foreign-currency documents need a positive rate.
func ResolveExchangeRate(currency, home string, rate decimal.Decimal) (decimal.Decimal, error) {
	if !domain.ValidCurrencyCode(currency) {
		return decimal.Zero, domain.NewValidationError("currency", fmt.Sprintf("unsupported currency %q", currency))
	}
	if currency == home {
		if rate.IsZero() || rate.Equal(one) {
			return one, nil
		}
		return decimal.Zero, domain.NewValidationError("exchange_rate", "home-currency documents must use an exchange rate of 1")
	}
	if !rate.IsPositive() {
		return decimal.Zero, domain.NewValidationError("exchange_rate", "foreign-currency documents require a positive exchange rate")
	}
	return rate, nil
}

// ToHome converts a document breakdown into the home currency. Each aggregate
// is converted and rounded on its own, then the grand total is rebuilt from the
// converted buckets so the home breakdown reconciles with itself.
func ToHome(t domain.Totals, rate decimal.Decimal) domain.Totals {
	if rate.Equal(one) {
		return t
	}
	conv := func(d decimal.Decimal) decimal.Decimal { return domain.RoundMoney(d.Mul(rate)) }
	h := domain.Totals{
		Subtotal:      conv(t.Subtotal),
		DiscountTotal: conv(t.DiscountTotal),
		TaxableBase:   conv(t.TaxableBase),
		TaxTotal:      conv(t.TaxTotal),
		ExemptTotal:   conv(t.ExemptTotal),
		NotTaxedTotal: conv(t.NotTaxedTotal),
		ExportTotal:   conv(t.ExportTotal),
		FreeTotal:     conv(t.FreeTotal),
	}
	h.GrandTotal = h.TaxableBase.Add(h.TaxTotal).Add(h.ExemptTotal).Add(h.NotTaxedTotal).Add(h.ExportTotal)
	return h
}

// ApplyPayment converts a payment amount into the document currency.
//
// A payment in the document currency applies as-is. A foreign payment against
// a home-currency document is multiplied by the payment's rate; a home payment
// against a foreign-currency document is divided by it. When the payment rate
// is unset the document rate is used. Payments between two foreign currencies
// are rejected.
func ApplyPayment(amount decimal.Decimal, payCurrency string, payRate decimal.Decimal, doc *domain.FiscalDocument, home string) (decimal.Decimal, error) {
	if payCurrency == doc.Currency {
		return domain.RoundMoney(amount), nil
	}
	if !domain.ValidCurrencyCode(payCurrency) {
		return decimal.Zero, domain.NewValidationError("currency", fmt.Sprintf("unsupported currency %q", payCurrency))
	}
	if payRate.IsZero() && doc.Currency != home {
		payRate = doc.ExchangeRate
	}
	if !payRate.IsPositive() {
		return decimal.Zero, domain.NewValidationError("exchange_rate", "a positive exchange rate is required for payments in another currency")
	}
	switch {
	case doc.Currency == home:
		return domain.RoundMoney(amount.Mul(payRate)), nil
	case payCurrency == home:
		return domain.RoundMoney(amount.Div(payRate)), nil
	default:
		return decimal.Zero, domain.NewValidationError("currency",
			fmt.Sprintf("payments in %s cannot settle a %s document", payCurrency, doc.Currency))
	}
}
