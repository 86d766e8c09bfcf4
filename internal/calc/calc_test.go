package calc_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
)

func newCalculator() *calc.Calculator {
	return calc.NewCalculator(decimal.RequireFromString("0.18"), "PEN")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, want, domain.FormatMoney(got), msgAndArgs...)
}

// --- Line ---

func TestLine_TaxInclusivePrice(t *testing.T) {
	r, err := newCalculator().Line(calc.LineInput{
		Quantity:         dec("3"),
		UnitPrice:        dec("10.00"),
		Affectation:      domain.AffectationTaxable,
		PriceIncludesTax: true,
	})

	require.NoError(t, err)
	assertMoney(t, "25.42", r.Base)
	assertMoney(t, "4.58", r.Tax)
	assertMoney(t, "30.00", r.Total)
	assertMoney(t, "25.42", r.Subtotal)
	assertMoney(t, "0.00", r.DiscountAmount)
}

func TestLine_TaxExclusiveWithDiscount(t *testing.T) {
	r, err := newCalculator().Line(calc.LineInput{
		Quantity:        dec("2"),
		UnitPrice:       dec("100"),
		DiscountPercent: dec("10"),
		Affectation:     domain.AffectationTaxable,
	})

	require.NoError(t, err)
	assertMoney(t, "180.00", r.Base)
	assertMoney(t, "32.40", r.Tax)
	assertMoney(t, "212.40", r.Total)
	assertMoney(t, "20.00", r.DiscountAmount)
	assertMoney(t, "200.00", r.Subtotal)
}

func TestLine_InclusiveDiscountIsStatedPreTax(t *testing.T) {
	r, err := newCalculator().Line(calc.LineInput{
		Quantity:         dec("1"),
		UnitPrice:        dec("118"),
		DiscountPercent:  dec("10"),
		Affectation:      domain.AffectationTaxable,
		PriceIncludesTax: true,
	})

	require.NoError(t, err)
	assertMoney(t, "90.00", r.Base)
	assertMoney(t, "16.20", r.Tax)
	assertMoney(t, "10.00", r.DiscountAmount)
	assertMoney(t, "100.00", r.Subtotal)
}

func TestLine_NonTaxableClassesCarryNoTax(t *testing.T) {
	for _, code := range []domain.Affectation{domain.AffectationExempt, domain.AffectationNotTaxed, domain.AffectationExport} {
		t.Run(string(code), func(t *testing.T) {
			r, err := newCalculator().Line(calc.LineInput{
				Quantity:         dec("1"),
				UnitPrice:        dec("50"),
				Affectation:      code,
				PriceIncludesTax: true,
			})

			require.NoError(t, err)
			assertMoney(t, "50.00", r.Base)
			assertMoney(t, "0.00", r.Tax)
			assertMoney(t, "50.00", r.Total)
		})
	}
}

func TestLine_FreeOfChargeContributesReferenceValueOnly(t *testing.T) {
	r, err := newCalculator().Line(calc.LineInput{
		Quantity:     dec("2"),
		UnitPrice:    dec("20"),
		Affectation:  domain.AffectationTaxable,
		FreeOfCharge: true,
	})

	require.NoError(t, err)
	assert.True(t, r.FreeOfCharge)
	assertMoney(t, "0.00", r.Total)
	assertMoney(t, "0.00", r.Tax)
	assertMoney(t, "40.00", r.ReferenceValue)
}

func TestLine_TotalIsSumOfRoundedParts(t *testing.T) {
	c := newCalculator()
	prices := []string{"0.01", "0.99", "1.37", "10.10", "33.33", "99.99", "123.45"}
	qtys := []string{"1", "3", "7", "0.5", "2.25"}
	for _, p := range prices {
		for _, q := range qtys {
			for _, inclusive := range []bool{true, false} {
				r, err := c.Line(calc.LineInput{
					Quantity: dec(q), UnitPrice: dec(p),
					Affectation: domain.AffectationTaxable, PriceIncludesTax: inclusive,
				})
				require.NoError(t, err)
				assert.True(t, r.Total.Equal(r.Base.Add(r.Tax)), "price %s qty %s", p, q)
				assert.True(t, r.Base.Equal(r.Base.Round(2)), "base not rounded for %s x %s", p, q)
				assert.True(t, r.Tax.Equal(r.Tax.Round(2)), "tax not rounded for %s x %s", p, q)
			}
		}
	}
}

func TestLine_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    calc.LineInput
		field string
	}{
		{"negative quantity", calc.LineInput{Quantity: dec("-1"), UnitPrice: dec("1"), Affectation: domain.AffectationTaxable}, "quantity"},
		{"negative price", calc.LineInput{Quantity: dec("1"), UnitPrice: dec("-1"), Affectation: domain.AffectationTaxable}, "unit_price"},
		{"discount above 100", calc.LineInput{Quantity: dec("1"), UnitPrice: dec("1"), DiscountPercent: dec("101"), Affectation: domain.AffectationTaxable}, "discount_percent"},
		{"negative discount", calc.LineInput{Quantity: dec("1"), UnitPrice: dec("1"), DiscountPercent: dec("-5"), Affectation: domain.AffectationTaxable}, "discount_percent"},
		{"unknown affectation", calc.LineInput{Quantity: dec("1"), UnitPrice: dec("1"), Affectation: "99"}, "affectation"},
		{"export discount", calc.LineInput{Quantity: dec("1"), UnitPrice: dec("1"), DiscountPercent: dec("5"), Affectation: domain.AffectationExport}, "discount_percent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newCalculator().Line(tt.in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

// --- Aggregate ---

func TestAggregate_MixedCart(t *testing.T) {
	c := newCalculator()
	var lines []calc.LineResult
	for _, in := range []calc.LineInput{
		{Quantity: dec("3"), UnitPrice: dec("10.00"), Affectation: domain.AffectationTaxable, PriceIncludesTax: true},
		{Quantity: dec("1"), UnitPrice: dec("50"), Affectation: domain.AffectationExempt},
		{Quantity: dec("2"), UnitPrice: dec("20"), Affectation: domain.AffectationTaxable, FreeOfCharge: true},
	} {
		r, err := c.Line(in)
		require.NoError(t, err)
		lines = append(lines, r)
	}

	totals, err := calc.Aggregate(lines)

	require.NoError(t, err)
	assertMoney(t, "25.42", totals.TaxableBase)
	assertMoney(t, "4.58", totals.TaxTotal)
	assertMoney(t, "50.00", totals.ExemptTotal)
	assertMoney(t, "40.00", totals.FreeTotal)
	assertMoney(t, "75.42", totals.Subtotal)
	assertMoney(t, "80.00", totals.GrandTotal)
}

func TestAggregate_RejectsInconsistentLine(t *testing.T) {
	class, _ := domain.LookupTaxClass(domain.AffectationTaxable)
	lines := []calc.LineResult{{
		Class: class, Subtotal: dec("10"), DiscountAmount: dec("0"),
		Base: dec("10"), Tax: dec("1.80"), Total: dec("12.00"),
	}}

	_, err := calc.Aggregate(lines)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReconciliation))
	var rerr *domain.ReconciliationError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "lines[0].total", rerr.Field)
}

func TestAggregate_RejectsChargedFreeLine(t *testing.T) {
	class, _ := domain.LookupTaxClass(domain.AffectationTaxable)
	lines := []calc.LineResult{{
		Class: class, FreeOfCharge: true,
		Base: dec("10"), Tax: dec("0"), Total: dec("10"),
	}}

	_, err := calc.Aggregate(lines)

	assert.True(t, errors.Is(err, domain.ErrReconciliation))
}

func TestReconcile_DetectsDrift(t *testing.T) {
	totals := domain.Totals{
		Subtotal: dec("100"), DiscountTotal: dec("0"), TaxableBase: dec("100"),
		TaxTotal: dec("18"), GrandTotal: dec("118"),
	}

	assert.NoError(t, calc.Reconcile(totals, dec("118.01")))
	assert.ErrorIs(t, calc.Reconcile(totals, dec("118.02")), domain.ErrReconciliation)
}

// --- Calculate ---

func TestCalculate_ReportsEveryOffendingLine(t *testing.T) {
	_, err := newCalculator().Calculate(calc.Request{
		Currency: "PEN",
		Lines: []calc.LineInput{
			{Quantity: dec("-1"), UnitPrice: dec("1"), Affectation: domain.AffectationTaxable},
			{Quantity: dec("1"), UnitPrice: dec("1"), Affectation: domain.AffectationTaxable},
			{Quantity: dec("1"), UnitPrice: dec("1"), DiscountPercent: dec("150"), Affectation: domain.AffectationTaxable},
		},
	})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "lines[0].quantity", verr.Fields[0].Field)
	assert.Equal(t, "lines[2].discount_percent", verr.Fields[1].Field)
}

func TestCalculate_EmptyCart(t *testing.T) {
	_, err := newCalculator().Calculate(calc.Request{Currency: "PEN"})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCalculate_ForeignCurrencyAddsHomeTotals(t *testing.T) {
	res, err := newCalculator().Calculate(calc.Request{
		Currency:         "USD",
		ExchangeRate:     dec("3.75"),
		PriceIncludesTax: true,
		Lines: []calc.LineInput{
			{Quantity: dec("3"), UnitPrice: dec("10.00"), Affectation: domain.AffectationTaxable},
		},
	})

	require.NoError(t, err)
	assertMoney(t, "30.00", res.Totals.GrandTotal)
	require.NotNil(t, res.HomeTotals)
	assertMoney(t, "95.33", res.HomeTotals.TaxableBase)
	assertMoney(t, "17.18", res.HomeTotals.TaxTotal)
	assert.True(t, res.HomeTotals.GrandTotal.Equal(res.HomeTotals.TaxableBase.Add(res.HomeTotals.TaxTotal)))
}

func TestCalculate_HomeCurrencyDefaultsRateToOne(t *testing.T) {
	res, err := newCalculator().Calculate(calc.Request{
		Currency: "PEN",
		Lines:    []calc.LineInput{{Quantity: dec("1"), UnitPrice: dec("1"), Affectation: domain.AffectationTaxable}},
	})

	require.NoError(t, err)
	assert.True(t, res.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.Nil(t, res.HomeTotals)
}

func TestResolveExchangeRate(t *testing.T) {
	_, err := calc.ResolveExchangeRate("PEN", "PEN", dec("3.5"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = calc.ResolveExchangeRate("USD", "PEN", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = calc.ResolveExchangeRate("XYZ", "PEN", dec("1"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	rate, err := calc.ResolveExchangeRate("USD", "PEN", dec("3.75"))
	require.NoError(t, err)
	assert.Equal(t, "3.75", rate.String())
}

func TestRecalculate_FillsDerivedAmounts(t *testing.T) {
	doc := &domain.FiscalDocument{
		Currency:         "PEN",
		PriceIncludesTax: true,
		Lines: []domain.LineItem{
			{Quantity: dec("3"), UnitPrice: dec("10"), Affectation: domain.AffectationTaxable},
		},
	}

	require.NoError(t, newCalculator().Recalculate(doc))
	assert.Equal(t, 1, doc.Lines[0].Position)
	assertMoney(t, "4.58", doc.Lines[0].Tax)
	assertMoney(t, "30.00", doc.Totals.GrandTotal)
	assert.NoError(t, calc.VerifyDocument(doc))
}

// --- ApplyPayment ---

func TestApplyPayment(t *testing.T) {
	penDoc := &domain.FiscalDocument{Currency: "PEN", ExchangeRate: dec("1")}
	usdDoc := &domain.FiscalDocument{Currency: "USD", ExchangeRate: dec("3.75")}

	applied, err := calc.ApplyPayment(dec("50"), "PEN", decimal.Zero, penDoc, "PEN")
	require.NoError(t, err)
	assertMoney(t, "50.00", applied)

	applied, err = calc.ApplyPayment(dec("100"), "USD", dec("3.70"), penDoc, "PEN")
	require.NoError(t, err)
	assertMoney(t, "370.00", applied)

	applied, err = calc.ApplyPayment(dec("375"), "PEN", decimal.Zero, usdDoc, "PEN")
	require.NoError(t, err)
	assertMoney(t, "100.00", applied)

	_, err = calc.ApplyPayment(dec("10"), "EUR", dec("1.1"), usdDoc, "PEN")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = calc.ApplyPayment(dec("10"), "USD", decimal.Zero, penDoc, "PEN")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
