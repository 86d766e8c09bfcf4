package authority

import (
	"time"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
)

// submissionPayload is the JSON body posted to the authority. Amounts travel
// as two-decimal strings.
type submissionPayload struct {
	IssuerRUC    string              `json:"issuer_ruc"`
	DocumentID   uuid.UUID           `json:"document_id"`
	DocumentType domain.DocumentType `json:"document_type"`
	Series       string              `json:"series"`
	Number       int64               `json:"number"`
	FullNumber   string              `json:"full_number"`
	IssueDate    string              `json:"issue_date"`
	DueDate      string              `json:"due_date,omitempty"`
	Currency     string              `json:"currency"`
	ExchangeRate string              `json:"exchange_rate"`
	Customer     *customerPayload    `json:"customer,omitempty"`
	Reference    *referencePayload   `json:"reference,omitempty"`
	Lines        []linePayload       `json:"lines"`
	Totals       totalsPayload       `json:"totals"`
	QR           string              `json:"qr"`
}

type customerPayload struct {
	IdentityType   domain.IdentityType `json:"identity_type"`
	IdentityNumber string              `json:"identity_number"`
	Name           string              `json:"name"`
}

type referencePayload struct {
	OriginalID uuid.UUID `json:"original_id"`
	ReasonCode string    `json:"reason_code"`
	Reason     string    `json:"reason"`
}

type linePayload struct {
	Position     int                `json:"position"`
	ProductCode  string             `json:"product_code,omitempty"`
	Description  string             `json:"description"`
	Unit         string             `json:"unit"`
	Quantity     string             `json:"quantity"`
	UnitPrice    string             `json:"unit_price"`
	Affectation  domain.Affectation `json:"affectation"`
	FreeOfCharge bool               `json:"free_of_charge,omitempty"`
	Discount     string             `json:"discount"`
	Base         string             `json:"base"`
	Tax          string             `json:"tax"`
	Total        string             `json:"total"`
	Reference    string             `json:"reference_value,omitempty"`
}

type totalsPayload struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Taxable  string `json:"taxable"`
	Tax      string `json:"tax"`
	Exempt   string `json:"exempt"`
	NotTaxed string `json:"not_taxed"`
	Export   string `json:"export"`
	Free     string `json:"free"`
	Total    string `json:"total"`
}

func newSubmissionPayload(issuerRUC string, doc *domain.FiscalDocument) submissionPayload {
	p := submissionPayload{
		IssuerRUC:    issuerRUC,
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Series:       doc.SeriesCode,
		Number:       *doc.Number,
		FullNumber:   domain.FullNumber(doc.SeriesCode, *doc.Number),
		IssueDate:    doc.IssueDate.Format(time.DateOnly),
		Currency:     doc.Currency,
		ExchangeRate: doc.ExchangeRate.String(),
		Lines:        make([]linePayload, len(doc.Lines)),
		QR:           domain.QRPayload(issuerRUC, doc),
		Totals: totalsPayload{
			Subtotal: domain.FormatMoney(doc.Totals.Subtotal),
			Discount: domain.FormatMoney(doc.Totals.DiscountTotal),
			Taxable:  domain.FormatMoney(doc.Totals.TaxableBase),
			Tax:      domain.FormatMoney(doc.Totals.TaxTotal),
			Exempt:   domain.FormatMoney(doc.Totals.ExemptTotal),
			NotTaxed: domain.FormatMoney(doc.Totals.NotTaxedTotal),
			Export:   domain.FormatMoney(doc.Totals.ExportTotal),
			Free:     domain.FormatMoney(doc.Totals.FreeTotal),
			Total:    domain.FormatMoney(doc.Totals.GrandTotal),
		},
	}
	if doc.DueDate != nil {
		p.DueDate = doc.DueDate.Format(time.DateOnly)
	}
	if doc.Customer != nil {
		p.Customer = &customerPayload{
			IdentityType:   doc.Customer.IdentityType,
			IdentityNumber: doc.Customer.IdentityNumber,
			Name:           doc.Customer.Name,
		}
	}
	if doc.Correction != nil {
		p.Reference = &referencePayload{
			OriginalID: doc.Correction.OriginalID,
			ReasonCode: doc.Correction.ReasonCode,
			Reason:     doc.Correction.Reason,
		}
	}
	for i, l := range doc.Lines {
		lp := linePayload{
			Position:     l.Position,
			ProductCode:  l.ProductCode,
			Description:  l.Description,
			Unit:         l.Unit,
			Quantity:     l.Quantity.String(),
			UnitPrice:    l.UnitPrice.String(),
			Affectation:  l.Affectation,
			FreeOfCharge: l.FreeOfCharge,
			Discount:     domain.FormatMoney(l.DiscountAmount),
			Base:         domain.FormatMoney(l.Base),
			Tax:          domain.FormatMoney(l.Tax),
			Total:        domain.FormatMoney(l.Total),
		}
		if l.FreeOfCharge {
			lp.Reference = domain.FormatMoney(l.ReferenceValue)
		}
		p.Lines[i] = lp
	}
	return p
}
