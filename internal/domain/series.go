package domain

import (
	"fmt"
	"regexp"
	"time"
)

// MaxDocumentNumber is the largest correlative the authority accepts.
const MaxDocumentNumber int64 = 99999999

var (
	seriesCodePattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

	seriesPrefixPatterns = map[DocumentType]*regexp.Regexp{
		DocumentTypeInvoice:    regexp.MustCompile(`^F\d{3}$`),
		DocumentTypeReceipt:    regexp.MustCompile(`^B\d{3}$`),
		DocumentTypeCreditNote: regexp.MustCompile(`^[FB]C\d{2}$`),
		DocumentTypeDebitNote:  regexp.MustCompile(`^[FB]D\d{2}$`),
	}
)

// DocumentSeries is a numbering stream scoped to one document type.
type DocumentSeries struct {
	Code          string       `db:"code" json:"code"`
	DocumentType  DocumentType `db:"document_type" json:"document_type"`
	CurrentNumber int64        `db:"current_number" json:"current_number"`
	MaxNumber     int64        `db:"max_number" json:"max_number"`
	IsDefault     bool         `db:"is_default" json:"is_default"`
	IsActive      bool         `db:"is_active" json:"is_active"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Exhausted reports whether the counter reached its maximum; the series is then closed.
func (s *DocumentSeries) Exhausted() bool {
	return s.CurrentNumber >= s.MaxNumber
}

// Remaining returns how many numbers can still be allocated.
func (s *DocumentSeries) Remaining() int64 {
	if s.Exhausted() {
		return 0
	}
	return s.MaxNumber - s.CurrentNumber
}

// ValidateSeriesCode checks the fixed-width format and the per-type prefix.
func ValidateSeriesCode(code string, docType DocumentType) error {
	if !seriesCodePattern.MatchString(code) {
		return NewValidationError("series", "series must be 4 uppercase alphanumeric characters")
	}
	pattern, ok := seriesPrefixPatterns[docType]
	if !ok {
		return NewValidationError("document_type", "unsupported document type")
	}
	if !pattern.MatchString(code) {
		return NewValidationError("series", fmt.Sprintf("series %s does not match the %s format", code, docType.Name()))
	}
	return nil
}

// FullNumber renders SERIE-NNNNNNNN. The logical number carries no padding.
func FullNumber(series string, number int64) string {
	return fmt.Sprintf("%s-%08d", series, number)
}
