package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one cart line. Derived amounts are filled by the calculator and
// frozen once the owning document leaves the draft state.
type LineItem struct {
	Position        int             `json:"position"`
	ProductID       *uuid.UUID      `json:"product_id,omitempty"`
	ProductCode     string          `json:"product_code"`
	Description     string          `json:"description"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Affectation     Affectation     `json:"affectation"`
	FreeOfCharge    bool            `json:"free_of_charge"`

	// Derived.
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Base           decimal.Decimal `json:"base"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	ReferenceValue decimal.Decimal `json:"reference_value"`
}

// Totals is the document-level aggregate breakdown.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxableBase   decimal.Decimal `json:"taxable_base"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	ExemptTotal   decimal.Decimal `json:"exempt_total"`
	NotTaxedTotal decimal.Decimal `json:"not_taxed_total"`
	ExportTotal   decimal.Decimal `json:"export_total"`
	FreeTotal     decimal.Decimal `json:"free_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// CorrectionRef links a credit or debit note to the document it corrects.
type CorrectionRef struct {
	OriginalID uuid.UUID `json:"original_id"`
	ReasonCode string    `json:"reason_code"`
	Reason     string    `json:"reason"`
}

// CustomerSnapshot is the customer identity frozen onto a document at emission.
type CustomerSnapshot struct {
	Name           string       `json:"name"`
	IdentityType   IdentityType `json:"identity_type"`
	IdentityNumber string       `json:"identity_number"`
	Email          string       `json:"email,omitempty"`
}

// AuthorityResponse holds the metadata returned by the tax authority.
type AuthorityResponse struct {
	Ticket           string           `json:"ticket,omitempty"`
	Outcome          AuthorityOutcome `json:"outcome,omitempty"`
	Hash             string           `json:"hash,omitempty"`
	ConfirmationCode string           `json:"confirmation_code,omitempty"`
	ResponseCode     string           `json:"response_code,omitempty"`
	Description      string           `json:"description,omitempty"`
	Observations     []string         `json:"observations,omitempty"`
	ReceivedAt       *time.Time       `json:"received_at,omitempty"`
}

// FiscalDocument is an invoice, receipt, credit note or debit note.
type FiscalDocument struct {
	ID                  uuid.UUID          `json:"id"`
	Type                DocumentType       `json:"document_type"`
	SeriesCode          string             `json:"series"`
	Number              *int64             `json:"number"`
	Currency            string             `json:"currency"`
	ExchangeRate        decimal.Decimal    `json:"exchange_rate"`
	PriceIncludesTax    bool               `json:"price_includes_tax"`
	IssueDate           time.Time          `json:"issue_date"`
	DueDate             *time.Time         `json:"due_date,omitempty"`
	CustomerID          uuid.UUID          `json:"customer_id"`
	Customer            *CustomerSnapshot  `json:"customer,omitempty"`
	Lines               []LineItem         `json:"lines"`
	Totals              Totals             `json:"totals"`
	State               DocumentState      `json:"state"`
	Correction          *CorrectionRef     `json:"correction,omitempty"`
	Authority           *AuthorityResponse `json:"authority,omitempty"`
	VoidReason          string             `json:"void_reason,omitempty"`
	Notes               string             `json:"notes,omitempty"`
	EmittedAt           *time.Time         `json:"emitted_at,omitempty"`
	SubmittedAt         *time.Time         `json:"submitted_at,omitempty"`
	ResolvedAt          *time.Time         `json:"resolved_at,omitempty"`
	VoidedAt            *time.Time         `json:"voided_at,omitempty"`
	// SubmissionRefusedAt is the last time the authority declined the document
	// outright. The submission worker leaves it alone for a cool-down period.
	SubmissionRefusedAt *time.Time         `json:"submission_refused_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// IsDraft reports whether lines and totals may still change.
func (d *FiscalDocument) IsDraft() bool {
	return d.State == StateDraft
}

// IdempotencyKey is attached to every submission attempt of the document.
func (d *FiscalDocument) IdempotencyKey() string {
	return d.ID.String()
}

// Clone returns a deep copy so callers can hand out documents without sharing slices.
func (d *FiscalDocument) Clone() *FiscalDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.Lines = append([]LineItem(nil), d.Lines...)
	if d.Number != nil {
		n := *d.Number
		c.Number = &n
	}
	if d.DueDate != nil {
		t := *d.DueDate
		c.DueDate = &t
	}
	if d.SubmissionRefusedAt != nil {
		t := *d.SubmissionRefusedAt
		c.SubmissionRefusedAt = &t
	}
	if d.Customer != nil {
		cs := *d.Customer
		c.Customer = &cs
	}
	if d.Correction != nil {
		cr := *d.Correction
		c.Correction = &cr
	}
	if d.Authority != nil {
		a := *d.Authority
		a.Observations = append([]string(nil), d.Authority.Observations...)
		c.Authority = &a
	}
	return &c
}

// IsForeignCurrency reports whether the document is issued outside the home currency.
func (d *FiscalDocument) IsForeignCurrency(home string) bool {
	return d.Currency != home
}

// StateChange is one entry of a document's lifecycle history.
type StateChange struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	DocumentID uuid.UUID     `db:"document_id" json:"document_id"`
	FromState  DocumentState `db:"from_state" json:"from_state"`
	ToState    DocumentState `db:"to_state" json:"to_state"`
	Reason     string        `db:"reason" json:"reason"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// SubmissionAttempt records one hand-off to the authority.
type SubmissionAttempt struct {
	ID             uuid.UUID `db:"id" json:"id"`
	DocumentID     uuid.UUID `db:"document_id" json:"document_id"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	Succeeded      bool      `db:"succeeded" json:"succeeded"`
	// Refused is set when the authority answered but declined the document.
	Refused        bool      `db:"refused" json:"refused"`
	Ticket         string    `db:"ticket" json:"ticket"`
	Error          string    `db:"error" json:"error"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Customer is the read-only view of a customer served by the lookup collaborator.
type Customer struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	IdentityType    IdentityType `db:"identity_type" json:"identity_type"`
	IdentityNumber  string       `db:"identity_number" json:"identity_number"`
	Email           string       `db:"email" json:"email"`
	IsActive        bool         `db:"is_active" json:"is_active"`
	IsBlocked       bool         `db:"is_blocked" json:"is_blocked"`
	BlockReason     string       `db:"block_reason" json:"block_reason"`
	RequiresInvoice bool         `db:"requires_invoice" json:"requires_invoice"`
}

// Snapshot freezes the customer identity for a document.
func (c *Customer) Snapshot() *CustomerSnapshot {
	return &CustomerSnapshot{
		Name:           c.Name,
		IdentityType:   c.IdentityType,
		IdentityNumber: c.IdentityNumber,
		Email:          c.Email,
	}
}

// Product is the read-only view of a product served by the lookup collaborator.
type Product struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	Code               string          `db:"code" json:"code"`
	Description        string          `db:"description" json:"description"`
	Unit               string          `db:"unit" json:"unit"`
	Affectation        Affectation     `db:"affectation" json:"affectation"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	IsSellable         bool            `db:"is_sellable" json:"is_sellable"`
	DiscountAllowed    bool            `db:"discount_allowed" json:"discount_allowed"`
	MaxDiscountPercent decimal.Decimal `db:"max_discount_percent" json:"max_discount_percent"`
}
