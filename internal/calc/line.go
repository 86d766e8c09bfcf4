// Package calc turns cart lines into tax-compliant amounts. Everything here is
// pure: no shared state is mutated, so a Calculator is safe for concurrent use.
package calc

import (
	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

var one = decimal.NewFromInt(1)

// LineInput is one cart line before calculation.
type LineInput struct {
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	DiscountPercent  decimal.Decimal
	Affectation      domain.Affectation
	FreeOfCharge     bool
	PriceIncludesTax bool
}

// LineResult carries the rounded amounts of one line plus the classification used.
type LineResult struct {
	Class          domain.TaxClass
	FreeOfCharge   bool
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Base           decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	ReferenceValue decimal.Decimal
}

// Calculator computes line and cart amounts for a fixed standard tax rate.
type Calculator struct {
	rate         decimal.Decimal
	homeCurrency string
}

// NewCalculator creates a Calculator. rate is a fraction (0.18 for 18%).
func NewCalculator(rate decimal.Decimal, homeCurrency string) *Calculator {
	return &Calculator{rate: rate, homeCurrency: homeCurrency}
}

// Rate returns the standard tax rate.
func (c *Calculator) Rate() decimal.Decimal { return c.rate }

// HomeCurrency returns the currency totals are converted into.
func (c *Calculator) HomeCurrency() string { return c.homeCurrency }

// ValidateLine checks the local preconditions of a line.
func ValidateLine(in LineInput) *domain.ValidationError {
	verr := &domain.ValidationError{}
	if in.Quantity.IsNegative() {
		verr.Add("quantity", "quantity must not be negative")
	}
	if in.UnitPrice.IsNegative() {
		verr.Add("unit_price", "unit price must not be negative")
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		verr.Add("discount_percent", "discount must be between 0 and 100")
	}
	class, ok := domain.LookupTaxClass(in.Affectation)
	if !ok {
		verr.Addf("affectation", "unknown affectation code %q", in.Affectation)
	} else if in.DiscountPercent.IsPositive() && !class.DiscountEligible {
		verr.Addf("discount_percent", "%s lines are not eligible for discounts", class.Name)
	}
	return verr
}

// Line computes base, tax and total for one line.
//
// Base and tax are rounded independently and the total is their sum, so the
// total is never derived from a rounded rate multiplication.
func (c *Calculator) Line(in LineInput) (LineResult, error) {
	if verr := ValidateLine(in); verr.HasErrors() {
		return LineResult{}, verr
	}
	class, _ := domain.LookupTaxClass(in.Affectation)

	list := in.UnitPrice.Mul(in.Quantity)
	discount := domain.Percent(list, in.DiscountPercent)
	gross := list.Sub(discount)

	if in.FreeOfCharge {
		return LineResult{
			Class:          class,
			FreeOfCharge:   true,
			Subtotal:       decimal.Zero,
			DiscountAmount: decimal.Zero,
			Base:           decimal.Zero,
			Tax:            decimal.Zero,
			Total:          decimal.Zero,
			ReferenceValue: domain.RoundMoney(gross),
		}, nil
	}

	base, tax, discountNet := gross, decimal.Zero, discount
	if class.AppliesRate {
		if in.PriceIncludesTax {
			divisor := one.Add(c.rate)
			base = gross.Div(divisor)
			tax = gross.Sub(base)
			discountNet = discount.Div(divisor)
		} else {
			tax = base.Mul(c.rate)
		}
	}

	base = domain.RoundMoney(base)
	tax = domain.RoundMoney(tax)
	discountNet = domain.RoundMoney(discountNet)
	return LineResult{
		Class:          class,
		Subtotal:       base.Add(discountNet),
		DiscountAmount: discountNet,
		Base:           base,
		Tax:            tax,
		Total:          base.Add(tax),
		ReferenceValue: decimal.Zero,
	}, nil
}

// ApplyTo copies the derived amounts onto a line item.
func (r LineResult) ApplyTo(item *domain.LineItem) {
	item.Subtotal = r.Subtotal
	item.DiscountAmount = r.DiscountAmount
	item.Base = r.Base
	item.Tax = r.Tax
	item.Total = r.Total
	item.ReferenceValue = r.ReferenceValue
}

// InputFromItem builds the calculator input for a stored line item.
func InputFromItem(item *domain.LineItem, priceIncludesTax bool) LineInput {
	return LineInput{
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		DiscountPercent:  item.DiscountPercent,
		Affectation:      item.Affectation,
		FreeOfCharge:     item.FreeOfCharge,
		PriceIncludesTax: priceIncludesTax,
	}
}

// ResultFromItem rebuilds a LineResult from the derived amounts stored on an item.
func ResultFromItem(item *domain.LineItem) (LineResult, error) {
	class, ok := domain.LookupTaxClass(item.Affectation)
	if !ok {
		return LineResult{}, domain.NewValidationError("affectation", "unknown affectation code")
	}
	return LineResult{
		Class:          class,
		FreeOfCharge:   item.FreeOfCharge,
		Subtotal:       item.Subtotal,
		DiscountAmount: item.DiscountAmount,
		Base:           item.Base,
		Tax:            item.Tax,
		Total:          item.Total,
		ReferenceValue: item.ReferenceValue,
	}, nil
}
