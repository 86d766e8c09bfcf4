package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func payment(amount string) domain.Payment {
	return domain.Payment{Amount: dec(amount), AppliedAmount: dec(amount)}
}

func TestSettle_ProgressesPendingPartialPaid(t *testing.T) {
	l := ledger.New(decimal.Zero)
	total := dec("100.00")
	var payments []domain.Payment

	assert.Equal(t, domain.SettlementPending, ledger.Settle(total, payments).Status)

	require.NoError(t, l.CheckAddition(total, payments, dec("40.00")))
	payments = append(payments, payment("40.00"))
	s := ledger.Settle(total, payments)
	assert.Equal(t, domain.SettlementPartial, s.Status)
	assert.Equal(t, "60.00", domain.FormatMoney(s.Balance))

	require.NoError(t, l.CheckAddition(total, payments, dec("60.00")))
	payments = append(payments, payment("60.00"))
	s = ledger.Settle(total, payments)
	assert.Equal(t, domain.SettlementPaid, s.Status)
	assert.Equal(t, "0.00", domain.FormatMoney(s.Balance))

	err := l.CheckAddition(total, payments, dec("0.01"))
	assert.ErrorIs(t, err, domain.ErrPaymentExceedsBalance)
}

func TestCheckAddition_RejectsNonPositive(t *testing.T) {
	l := ledger.New(decimal.Zero)

	assert.ErrorIs(t, l.CheckAddition(dec("10"), nil, decimal.Zero), domain.ErrValidation)
	assert.ErrorIs(t, l.CheckAddition(dec("10"), nil, dec("-1")), domain.ErrValidation)
}

func TestCheckAddition_Tolerance(t *testing.T) {
	l := ledger.New(dec("0.50"))
	payments := []domain.Payment{payment("100.00")}

	assert.NoError(t, l.CheckAddition(dec("100.00"), payments, dec("0.50")))
	assert.ErrorIs(t, l.CheckAddition(dec("100.00"), payments, dec("0.51")), domain.ErrPaymentExceedsBalance)
}

func TestSettle_OneMinorUnitShortIsPartial(t *testing.T) {
	s := ledger.Settle(dec("100.00"), []domain.Payment{payment("99.99")})

	assert.Equal(t, domain.SettlementPartial, s.Status)
	assert.Equal(t, "0.01", domain.FormatMoney(s.Balance))
}

func TestSettle_SubMinorUnitRoundingIsPaid(t *testing.T) {
	// Applied amounts converted from another currency can carry extra digits.
	s := ledger.Settle(dec("100.00"), []domain.Payment{payment("33.335"), payment("66.6649")})

	assert.Equal(t, domain.SettlementPaid, s.Status)
}

func TestSettle_UsesAppliedAmount(t *testing.T) {
	p := domain.Payment{Amount: dec("100"), Currency: "USD", AppliedAmount: dec("370.00")}

	s := ledger.Settle(dec("370.00"), []domain.Payment{p})

	assert.Equal(t, domain.SettlementPaid, s.Status)
	assert.Equal(t, "370.00", domain.FormatMoney(s.Paid))
}

func TestSettle_NeverRegressesAsPaymentsAccrue(t *testing.T) {
	total := dec("50.00")
	rank := map[domain.SettlementStatus]int{
		domain.SettlementPending: 0, domain.SettlementPartial: 1, domain.SettlementPaid: 2,
	}
	var payments []domain.Payment
	last := ledger.Settle(total, payments).Status
	for _, amt := range []string{"0.01", "9.99", "15", "20", "5"} {
		payments = append(payments, payment(amt))
		s := ledger.Settle(total, payments)
		assert.GreaterOrEqual(t, rank[s.Status], rank[last])
		assert.True(t, s.Paid.LessThanOrEqual(total))
		last = s.Status
	}
	assert.Equal(t, domain.SettlementPaid, last)
}
