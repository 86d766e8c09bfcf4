package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is owned exclusively by one FiscalDocument. AppliedAmount is the amount
// in the document currency and is what the ledger reconciles against.
type Payment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	DocumentID    uuid.UUID       `db:"document_id" json:"document_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	ExchangeRate  decimal.Decimal `db:"exchange_rate" json:"exchange_rate"`
	AppliedAmount decimal.Decimal `db:"applied_amount" json:"applied_amount"`
	Method        PaymentMethod   `db:"method" json:"method"`
	PaidOn        time.Time       `db:"paid_on" json:"paid_on"`
	Reference     string          `db:"reference" json:"reference"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Settlement is the derived payment position of a document.
type Settlement struct {
	Status  SettlementStatus `json:"status"`
	Total   decimal.Decimal  `json:"total"`
	Paid    decimal.Decimal  `json:"paid"`
	Balance decimal.Decimal  `json:"balance"`
}

// PaymentsAccepted reports whether a document in state s may receive payments.
func PaymentsAccepted(s DocumentState) bool {
	switch s {
	case StateEmitted, StateSubmitted, StateAccepted, StateObserved:
		return true
	default:
		return false
	}
}
