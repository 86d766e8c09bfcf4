package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/service"
)

// Amounts in responses are rendered as strings with exactly two decimals.
func money(d decimal.Decimal) string {
	return domain.FormatMoney(d)
}

// TotalsView is the money rendering of domain.Totals.
type TotalsView struct {
	Subtotal      string `json:"subtotal" example:"100.00"`
	DiscountTotal string `json:"discount_total" example:"0.00"`
	TaxableBase   string `json:"taxable_base" example:"100.00"`
	TaxTotal      string `json:"tax_total" example:"18.00"`
	ExemptTotal   string `json:"exempt_total" example:"0.00"`
	NotTaxedTotal string `json:"not_taxed_total" example:"0.00"`
	ExportTotal   string `json:"export_total" example:"0.00"`
	FreeTotal     string `json:"free_total" example:"0.00"`
	GrandTotal    string `json:"grand_total" example:"118.00"`
}

func newTotalsView(t domain.Totals) TotalsView {
	return TotalsView{
		Subtotal:      money(t.Subtotal),
		DiscountTotal: money(t.DiscountTotal),
		TaxableBase:   money(t.TaxableBase),
		TaxTotal:      money(t.TaxTotal),
		ExemptTotal:   money(t.ExemptTotal),
		NotTaxedTotal: money(t.NotTaxedTotal),
		ExportTotal:   money(t.ExportTotal),
		FreeTotal:     money(t.FreeTotal),
		GrandTotal:    money(t.GrandTotal),
	}
}

// LineView is one rendered document line.
type LineView struct {
	Position        int                `json:"position" example:"1"`
	ProductID       *uuid.UUID         `json:"product_id,omitempty"`
	ProductCode     string             `json:"product_code,omitempty" example:"W-1"`
	Description     string             `json:"description" example:"Widget"`
	Unit            string             `json:"unit" example:"NIU"`
	Quantity        string             `json:"quantity" example:"1"`
	UnitPrice       string             `json:"unit_price" example:"118"`
	DiscountPercent string             `json:"discount_percent" example:"0"`
	Affectation     domain.Affectation `json:"affectation" example:"10"`
	FreeOfCharge    bool               `json:"free_of_charge"`
	Subtotal        string             `json:"subtotal" example:"100.00"`
	DiscountAmount  string             `json:"discount_amount" example:"0.00"`
	Base            string             `json:"base" example:"100.00"`
	Tax             string             `json:"tax" example:"18.00"`
	Total           string             `json:"total" example:"118.00"`
	ReferenceValue  string             `json:"reference_value" example:"0.00"`
}

// DocumentView is the API rendering of a fiscal document.
type DocumentView struct {
	ID                  uuid.UUID                 `json:"id"`
	DocumentType        domain.DocumentType       `json:"document_type" example:"01"`
	TypeName            string                    `json:"type_name" example:"invoice"`
	Series              string                    `json:"series" example:"F001"`
	Number              *int64                    `json:"number" example:"11"`
	FullNumber          string                    `json:"full_number,omitempty" example:"F001-00000011"`
	Currency            string                    `json:"currency" example:"PEN"`
	ExchangeRate        string                    `json:"exchange_rate" example:"1"`
	PriceIncludesTax    bool                      `json:"price_includes_tax"`
	IssueDate           string                    `json:"issue_date" example:"2026-03-10"`
	DueDate             string                    `json:"due_date,omitempty" example:"2026-04-09"`
	CustomerID          uuid.UUID                 `json:"customer_id"`
	Customer            *domain.CustomerSnapshot  `json:"customer,omitempty"`
	Lines               []LineView                `json:"lines"`
	Totals              TotalsView                `json:"totals"`
	State               domain.DocumentState      `json:"state" example:"emitted"`
	Correction          *domain.CorrectionRef     `json:"correction,omitempty"`
	Authority           *domain.AuthorityResponse `json:"authority,omitempty"`
	VoidReason          string                    `json:"void_reason,omitempty"`
	Notes               string                    `json:"notes,omitempty"`
	EmittedAt           *time.Time                `json:"emitted_at,omitempty"`
	SubmittedAt         *time.Time                `json:"submitted_at,omitempty"`
	ResolvedAt          *time.Time                `json:"resolved_at,omitempty"`
	VoidedAt            *time.Time                `json:"voided_at,omitempty"`
	SubmissionRefusedAt *time.Time                `json:"submission_refused_at,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

func newDocumentView(d *domain.FiscalDocument) DocumentView {
	v := DocumentView{
		ID:                  d.ID,
		DocumentType:        d.Type,
		TypeName:            d.Type.Name(),
		Series:              d.SeriesCode,
		Number:              d.Number,
		Currency:            d.Currency,
		ExchangeRate:        d.ExchangeRate.String(),
		PriceIncludesTax:    d.PriceIncludesTax,
		IssueDate:           d.IssueDate.Format(time.DateOnly),
		CustomerID:          d.CustomerID,
		Customer:            d.Customer,
		Lines:               make([]LineView, len(d.Lines)),
		Totals:              newTotalsView(d.Totals),
		State:               d.State,
		Correction:          d.Correction,
		Authority:           d.Authority,
		VoidReason:          d.VoidReason,
		Notes:               d.Notes,
		EmittedAt:           d.EmittedAt,
		SubmittedAt:         d.SubmittedAt,
		ResolvedAt:          d.ResolvedAt,
		VoidedAt:            d.VoidedAt,
		SubmissionRefusedAt: d.SubmissionRefusedAt,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	if d.Number != nil {
		v.FullNumber = domain.FullNumber(d.SeriesCode, *d.Number)
	}
	if d.DueDate != nil {
		v.DueDate = d.DueDate.Format(time.DateOnly)
	}
	for i, l := range d.Lines {
		v.Lines[i] = LineView{
			Position:        l.Position,
			ProductID:       l.ProductID,
			ProductCode:     l.ProductCode,
			Description:     l.Description,
			Unit:            l.Unit,
			Quantity:        l.Quantity.String(),
			UnitPrice:       l.UnitPrice.String(),
			DiscountPercent: l.DiscountPercent.String(),
			Affectation:     l.Affectation,
			FreeOfCharge:    l.FreeOfCharge,
			Subtotal:        money(l.Subtotal),
			DiscountAmount:  money(l.DiscountAmount),
			Base:            money(l.Base),
			Tax:             money(l.Tax),
			Total:           money(l.Total),
			ReferenceValue:  money(l.ReferenceValue),
		}
	}
	return v
}

func newDocumentViews(docs []domain.FiscalDocument) []DocumentView {
	out := make([]DocumentView, len(docs))
	for i := range docs {
		out[i] = newDocumentView(&docs[i])
	}
	return out
}

// CalculationLineView is one line of a calculation preview.
type CalculationLineView struct {
	Position       int              `json:"position" example:"1"`
	Classification string           `json:"classification" example:"taxable"`
	Bucket         domain.TaxBucket `json:"bucket" example:"taxable"`
	FreeOfCharge   bool             `json:"free_of_charge"`
	Subtotal       string           `json:"subtotal" example:"100.00"`
	DiscountAmount string           `json:"discount_amount" example:"0.00"`
	Base           string           `json:"base" example:"100.00"`
	Tax            string           `json:"tax" example:"18.00"`
	Total          string           `json:"total" example:"118.00"`
	ReferenceValue string           `json:"reference_value" example:"0.00"`
}

// CalculationView is the rendered result of a calculation preview.
type CalculationView struct {
	Currency     string                `json:"currency" example:"USD"`
	ExchangeRate string                `json:"exchange_rate" example:"3.75"`
	Lines        []CalculationLineView `json:"lines"`
	Totals       TotalsView            `json:"totals"`
	HomeTotals   *TotalsView           `json:"home_totals,omitempty"`
}

func newCalculationView(r *calc.Result) CalculationView {
	v := CalculationView{
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate.String(),
		Lines:        make([]CalculationLineView, len(r.Lines)),
		Totals:       newTotalsView(r.Totals),
	}
	for i, l := range r.Lines {
		v.Lines[i] = CalculationLineView{
			Position:       i + 1,
			Classification: l.Class.Name,
			Bucket:         l.Class.Bucket,
			FreeOfCharge:   l.FreeOfCharge,
			Subtotal:       money(l.Subtotal),
			DiscountAmount: money(l.DiscountAmount),
			Base:           money(l.Base),
			Tax:            money(l.Tax),
			Total:          money(l.Total),
			ReferenceValue: money(l.ReferenceValue),
		}
	}
	if r.HomeTotals != nil {
		home := newTotalsView(*r.HomeTotals)
		v.HomeTotals = &home
	}
	return v
}

// SettlementView is the rendered payment position of a document.
type SettlementView struct {
	Status  domain.SettlementStatus `json:"status" example:"partial"`
	Total   string                  `json:"total" example:"118.00"`
	Paid    string                  `json:"paid" example:"50.00"`
	Balance string                  `json:"balance" example:"68.00"`
}

func newSettlementView(s domain.Settlement) SettlementView {
	return SettlementView{Status: s.Status, Total: money(s.Total), Paid: money(s.Paid), Balance: money(s.Balance)}
}

// PaymentView is one rendered payment.
type PaymentView struct {
	ID            uuid.UUID            `json:"id"`
	DocumentID    uuid.UUID            `json:"document_id"`
	Amount        string               `json:"amount" example:"50.00"`
	Currency      string               `json:"currency" example:"PEN"`
	ExchangeRate  string               `json:"exchange_rate" example:"1"`
	AppliedAmount string               `json:"applied_amount" example:"50.00"`
	Method        domain.PaymentMethod `json:"method" example:"cash"`
	PaidOn        string               `json:"paid_on" example:"2026-03-10"`
	Reference     string               `json:"reference,omitempty"`
}

func newPaymentView(p *domain.Payment) PaymentView {
	return PaymentView{
		ID:            p.ID,
		DocumentID:    p.DocumentID,
		Amount:        money(p.Amount),
		Currency:      p.Currency,
		ExchangeRate:  p.ExchangeRate.String(),
		AppliedAmount: money(p.AppliedAmount),
		Method:        p.Method,
		PaidOn:        p.PaidOn.Format(time.DateOnly),
		Reference:     p.Reference,
	}
}

// PaymentResultView is the response to a payment registration.
type PaymentResultView struct {
	Payment    PaymentView    `json:"payment"`
	Settlement SettlementView `json:"settlement"`
}

func newPaymentResultView(r *service.PaymentResult) PaymentResultView {
	return PaymentResultView{Payment: newPaymentView(r.Payment), Settlement: newSettlementView(r.Settlement)}
}

// PaymentListView lists the payments of a document with its settlement.
type PaymentListView struct {
	Payments   []PaymentView  `json:"payments"`
	Settlement SettlementView `json:"settlement"`
}
