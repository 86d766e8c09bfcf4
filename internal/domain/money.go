package domain

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the minor-unit precision of every supported currency.
const MoneyPlaces int32 = 2

var (
	// Epsilon is one minor unit, the tolerance for reconciliation checks.
	Epsilon = decimal.New(1, -MoneyPlaces)

	hundred = decimal.NewFromInt(100)

	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// SupportedCurrencies lists the ISO 4217 codes documents may be issued in.
var SupportedCurrencies = map[string]bool{
	"PEN": true,
	"USD": true,
	"EUR": true,
}

// ValidCurrencyCode reports whether code is a supported 3-letter currency.
func ValidCurrencyCode(code string) bool {
	return currencyCodePattern.MatchString(code) && SupportedCurrencies[code]
}

// RoundMoney rounds half-up to the currency minor unit.
// Amounts in the engine are non-negative, so decimal's half-away-from-zero is half-up here.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// WithinEpsilon reports |a-b| <= one minor unit.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// Percent returns d% of amount without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// FormatMoney renders an amount with exactly two decimal digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
