package domain

// DocumentType tags the variant of a fiscal document. Values are the authority's type codes.
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "01"
	DocumentTypeReceipt    DocumentType = "03"
	DocumentTypeCreditNote DocumentType = "07"
	DocumentTypeDebitNote  DocumentType = "08"
)

// documentTypeNames maps API names to type codes.
var documentTypeNames = map[string]DocumentType{
	"invoice":     DocumentTypeInvoice,
	"receipt":     DocumentTypeReceipt,
	"credit-note": DocumentTypeCreditNote,
	"debit-note":  DocumentTypeDebitNote,
}

// ParseDocumentType accepts either the authority code ("01") or the API name ("invoice").
func ParseDocumentType(s string) (DocumentType, bool) {
	if t, ok := documentTypeNames[s]; ok {
		return t, true
	}
	t := DocumentType(s)
	if _, ok := documentVariants[t]; ok {
		return t, true
	}
	return "", false
}

// Name returns the API name of the type.
func (t DocumentType) Name() string {
	for name, code := range documentTypeNames {
		if code == t {
			return name
		}
	}
	return string(t)
}

// IsNote reports whether the type is a correction document.
func (t DocumentType) IsNote() bool {
	return t == DocumentTypeCreditNote || t == DocumentTypeDebitNote
}

// DocumentState is the lifecycle state of a fiscal document.
type DocumentState string

const (
	StateDraft     DocumentState = "draft"
	StateEmitted   DocumentState = "emitted"
	StateSubmitted DocumentState = "submitted"
	StateAccepted  DocumentState = "accepted"
	StateRejected  DocumentState = "rejected"
	StateObserved  DocumentState = "observed"
	StateVoided    DocumentState = "voided"
)

// ValidDocumentStates is used to validate state filters.
var ValidDocumentStates = map[DocumentState]bool{
	StateDraft:     true,
	StateEmitted:   true,
	StateSubmitted: true,
	StateAccepted:  true,
	StateRejected:  true,
	StateObserved:  true,
	StateVoided:    true,
}

// AuthorityOutcome is the final verdict delivered by the tax authority.
type AuthorityOutcome string

const (
	OutcomeAccepted AuthorityOutcome = "accepted"
	OutcomeRejected AuthorityOutcome = "rejected"
	OutcomeObserved AuthorityOutcome = "observed"
)

// State returns the lifecycle state an outcome resolves to.
func (o AuthorityOutcome) State() (DocumentState, bool) {
	switch o {
	case OutcomeAccepted:
		return StateAccepted, true
	case OutcomeRejected:
		return StateRejected, true
	case OutcomeObserved:
		return StateObserved, true
	default:
		return "", false
	}
}

// SettlementStatus is derived from a document's payments; it is never stored.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPartial SettlementStatus = "partial"
	SettlementPaid    SettlementStatus = "paid"
)

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentWallet   PaymentMethod = "wallet"
	PaymentCheck    PaymentMethod = "check"
	PaymentCredit   PaymentMethod = "credit"
)

// ValidPaymentMethods is used to validate payment input.
var ValidPaymentMethods = map[PaymentMethod]bool{
	PaymentCash:     true,
	PaymentCard:     true,
	PaymentTransfer: true,
	PaymentWallet:   true,
	PaymentCheck:    true,
	PaymentCredit:   true,
}

// IdentityType is the customer identity document type code.
type IdentityType string

const (
	IdentityNone     IdentityType = "0"
	IdentityDNI      IdentityType = "1"
	IdentityForeign  IdentityType = "4"
	IdentityRUC      IdentityType = "6"
	IdentityPassport IdentityType = "7"
)

// ValidUnitsOfMeasure lists the unit codes accepted on line items.
var ValidUnitsOfMeasure = map[string]bool{
	"NIU": true, // unit
	"ZZ":  true, // service
	"KGM": true,
	"MTR": true,
	"LTR": true,
	"H87": true,
	"BX":  true,
	"PK":  true,
	"HUR": true,
}
