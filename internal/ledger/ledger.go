// Package ledger derives the settlement position of a document from its
// payments. Settlement is recomputed on every read and never stored.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// Ledger checks payment additions against a document total.
type Ledger struct {
	tolerance decimal.Decimal
}

// New creates a Ledger. tolerance is the overpayment allowed above the grand
// total; zero rejects any overshoot.
func New(tolerance decimal.Decimal) *Ledger {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}
	return &Ledger{tolerance: tolerance}
}

// Paid sums the applied amounts of payments.
func Paid(payments []domain.Payment) decimal.Decimal {
	sum := decimal.Zero
	for i := range payments {
		sum = sum.Add(payments[i].AppliedAmount)
	}
	return sum
}

// Settle derives the settlement of a document with grand total total. A
// document is paid once the applied amounts, rounded to the minor unit, cover
// the total; a single unit still owed leaves it partial.
func Settle(total decimal.Decimal, payments []domain.Payment) domain.Settlement {
	paid := Paid(payments)
	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	status := domain.SettlementPartial
	switch {
	case domain.RoundMoney(paid).GreaterThanOrEqual(domain.RoundMoney(total)):
		status = domain.SettlementPaid
	case paid.IsZero():
		status = domain.SettlementPending
	}
	return domain.Settlement{Status: status, Total: total, Paid: paid, Balance: balance}
}

// CheckAddition reports whether a payment applying amount may be appended to
// payments without pushing the cumulative total past total plus tolerance.
func (l *Ledger) CheckAddition(total decimal.Decimal, payments []domain.Payment, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "payment amount must be greater than zero")
	}
	after := Paid(payments).Add(amount)
	if after.GreaterThan(total.Add(l.tolerance)) {
		balance := total.Sub(Paid(payments))
		return fmt.Errorf("%w: balance %s, payment %s",
			domain.ErrPaymentExceedsBalance, domain.FormatMoney(balance), domain.FormatMoney(amount))
	}
	return nil
}
