package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrValidation            = errors.New("validation failed")
	ErrReconciliation        = errors.New("totals do not reconcile with line items")
	ErrInvalidTransition     = errors.New("invalid document state transition")
	ErrDocumentFrozen        = errors.New("document is no longer a draft")
	ErrSeriesNotFound        = errors.New("series not found")
	ErrSeriesExists          = errors.New("series already exists")
	ErrSeriesExhausted       = errors.New("series exhausted")
	ErrSeriesBusy            = errors.New("series busy, retry")
	ErrSeriesInactive        = errors.New("series is inactive")
	ErrSeriesTypeMismatch    = errors.New("series does not belong to the document type")
	ErrNoDefaultSeries       = errors.New("no default series for document type")
	ErrPaymentExceedsBalance = errors.New("payment exceeds outstanding balance")
	ErrPaymentNotAllowed     = errors.New("document does not accept payments in its current state")
	ErrCorrectionNotAllowed  = errors.New("document cannot be corrected in its current state")
	ErrCreditExceedsOriginal = errors.New("credit notes exceed the original document total")
	ErrVoidWindowExpired     = errors.New("void window has expired")
	ErrSubmissionPending     = errors.New("submission pending confirmation")
	ErrSubmissionRefused     = errors.New("authority refused the submission")
	ErrLockNotObtained       = errors.New("could not obtain document lock")
)

// FieldError describes one offending field or condition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a local, recoverable input error carrying every offending field.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError with a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Addf appends a formatted field error.
func (e *ValidationError) Addf(field, format string, args ...interface{}) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// Merge appends all fields of other, prefixing each field name.
func (e *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for _, f := range other.Fields {
		name := f.Field
		if prefix != "" {
			name = prefix + "." + name
		}
		e.Add(name, f.Message)
	}
}

// HasErrors reports whether any field error was collected.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns e when it carries errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StateError reports a transition missing from the lifecycle table.
type StateError struct {
	From DocumentState
	To   DocumentState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid document state transition: %s -> %s", e.From, e.To)
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidTransition }

// ReconciliationError reports aggregate totals that disagree with the line items.
type ReconciliationError struct {
	Field    string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("totals do not reconcile: %s expected %s, got %s",
		e.Field, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}

func (e *ReconciliationError) Is(target error) bool { return target == ErrReconciliation }
