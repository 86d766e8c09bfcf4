package domain

import "github.com/google/uuid"

// DocumentVariant declares the per-type construction rules of a fiscal document.
type DocumentVariant struct {
	Type              DocumentType
	RequiresReference bool
	RequiresRUC       bool
	ReasonCodes       map[string]string
}

// creditNoteReasons is the authority catalogue of credit-note reasons.
var creditNoteReasons = map[string]string{
	"01": "cancellation of the operation",
	"02": "cancellation due to RUC error",
	"03": "correction of description",
	"04": "global discount",
	"05": "item discount",
	"06": "total refund",
	"07": "item refund",
	"08": "bonus",
	"09": "decrease in value",
}

// debitNoteReasons is the authority catalogue of debit-note reasons.
var debitNoteReasons = map[string]string{
	"01": "late-payment interest",
	"02": "increase in value",
	"03": "penalties",
}

var documentVariants = map[DocumentType]DocumentVariant{
	DocumentTypeInvoice:    {Type: DocumentTypeInvoice, RequiresRUC: true},
	DocumentTypeReceipt:    {Type: DocumentTypeReceipt},
	DocumentTypeCreditNote: {Type: DocumentTypeCreditNote, RequiresReference: true, ReasonCodes: creditNoteReasons},
	DocumentTypeDebitNote:  {Type: DocumentTypeDebitNote, RequiresReference: true, ReasonCodes: debitNoteReasons},
}

// VariantOf returns the construction rules for a document type.
func VariantOf(t DocumentType) (DocumentVariant, bool) {
	v, ok := documentVariants[t]
	return v, ok
}

// ValidateShape enforces the per-variant required fields of a document.
func (v DocumentVariant) ValidateShape(doc *FiscalDocument) *ValidationError {
	verr := &ValidationError{}
	if v.RequiresReference {
		switch {
		case doc.Correction == nil:
			verr.Add("correction", "credit and debit notes must reference an original document")
		default:
			if doc.Correction.OriginalID == uuid.Nil {
				verr.Add("correction.original_id", "original document is required")
			}
			if _, ok := v.ReasonCodes[doc.Correction.ReasonCode]; !ok {
				verr.Addf("correction.reason_code", "unknown reason code %q for %s", doc.Correction.ReasonCode, v.Type.Name())
			}
			if doc.Correction.Reason == "" {
				verr.Add("correction.reason", "correction reason is required")
			}
		}
	} else if doc.Correction != nil {
		verr.Addf("correction", "%s cannot reference another document", v.Type.Name())
	}
	return verr
}

// ReasonDescription returns the catalogue text for a correction reason code.
func ReasonDescription(t DocumentType, code string) (string, bool) {
	v, ok := documentVariants[t]
	if !ok || v.ReasonCodes == nil {
		return "", false
	}
	desc, ok := v.ReasonCodes[code]
	return desc, ok
}
