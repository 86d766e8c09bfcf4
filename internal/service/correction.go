package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// CreateCorrectionInput is the DTO for issuing a credit or debit note against
// an emitted document. When Lines is empty the original lines are carried
// over, which suits full cancellations and total refunds.
type CreateCorrectionInput struct {
	OriginalID   uuid.UUID   `json:"original_id"`
	DocumentType string      `json:"document_type" validate:"required,oneof=credit-note debit-note 07 08"`
	SeriesCode   string      `json:"series" validate:"omitempty,len=4,uppercase"`
	ReasonCode   string      `json:"reason_code" validate:"required,len=2"`
	Reason       string      `json:"reason" validate:"required,max=500"`
	IssueDate    *time.Time  `json:"issue_date"`
	Notes        string      `json:"notes" validate:"max=1000"`
	Lines        []LineInput `json:"lines" validate:"omitempty,dive"`
}

// CreateCorrection builds a draft note referencing the original. The note is
// calculated on its own and the original is never modified; it only gains a
// backlink.
func (s *documentService) CreateCorrection(ctx context.Context, input *CreateCorrectionInput) (*domain.FiscalDocument, error) {
	verr := validateInput(input)
	validateUnits(verr, input.Lines)
	if input.OriginalID == uuid.Nil {
		verr.Add("original_id", "is required")
	}
	docType, ok := domain.ParseDocumentType(input.DocumentType)
	if input.DocumentType != "" && (!ok || !docType.IsNote()) {
		verr.Addf("document_type", "%q is not a correction document type", input.DocumentType)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	// Serialize corrections per original so the credit cap holds.
	unlock, err := s.lockDocument(ctx, input.OriginalID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	original, err := s.Documents.GetByID(ctx, input.OriginalID)
	if err != nil {
		return nil, err
	}
	if !domain.Correctable(original.State) {
		return nil, fmt.Errorf("original is %s: %w", original.State, domain.ErrCorrectionNotAllowed)
	}
	if original.Type.IsNote() {
		return nil, fmt.Errorf("notes cannot be corrected: %w", domain.ErrCorrectionNotAllowed)
	}

	seriesCode, err := s.resolveSeries(ctx, input.SeriesCode, docType)
	if err != nil {
		return nil, err
	}
	if seriesCode[0] != original.SeriesCode[0] {
		return nil, domain.NewValidationError("series",
			fmt.Sprintf("series %s cannot correct a document of series %s", seriesCode, original.SeriesCode))
	}

	now := s.now()
	issueDate := now.Truncate(24 * time.Hour)
	if input.IssueDate != nil {
		issueDate = input.IssueDate.UTC()
	}
	note := &domain.FiscalDocument{
		ID:               uuid.New(),
		Type:             docType,
		SeriesCode:       seriesCode,
		Currency:         original.Currency,
		ExchangeRate:     original.ExchangeRate,
		PriceIncludesTax: original.PriceIncludesTax,
		IssueDate:        issueDate,
		CustomerID:       original.CustomerID,
		State:            domain.StateDraft,
		Notes:            input.Notes,
		Correction: &domain.CorrectionRef{
			OriginalID: original.ID,
			ReasonCode: input.ReasonCode,
			Reason:     strings.TrimSpace(input.Reason),
		},
	}
	if len(input.Lines) > 0 {
		note.Lines = lineItemsFromInput(input.Lines)
	} else {
		note.Lines = carryLines(original.Lines)
	}

	if err := s.recalculate(note, verr); err != nil {
		return nil, err
	}
	variant, _ := domain.VariantOf(docType)
	verr.Merge("", variant.ValidateShape(note))
	if verr.HasErrors() {
		return nil, verr
	}
	if err := s.checkCreditCap(ctx, original, note); err != nil {
		return nil, err
	}

	if err := s.Documents.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("creating correction: %w", err)
	}
	if err := s.Documents.LinkCorrection(ctx, original.ID, note.ID); err != nil {
		return nil, fmt.Errorf("linking correction: %w", err)
	}
	s.recordTransition(ctx, note, "", "correction draft created")
	s.docLog(note).WithField("original_id", original.ID).Info("correction draft created")
	return note, nil
}

// carryLines copies the commercial fields of the original lines; derived
// amounts are recomputed for the note.
func carryLines(lines []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(lines))
	for i, l := range lines {
		out[i] = domain.LineItem{
			Position:        i + 1,
			ProductID:       l.ProductID,
			ProductCode:     l.ProductCode,
			Description:     l.Description,
			Unit:            l.Unit,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			Affectation:     l.Affectation,
			FreeOfCharge:    l.FreeOfCharge,
		}
	}
	return out
}

// creditedTotal sums the grand totals of live credit notes against original,
// skipping exclude.
func (s *documentService) creditedTotal(ctx context.Context, originalID, exclude uuid.UUID) (decimal.Decimal, error) {
	notes, err := s.Documents.ListCorrections(ctx, originalID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for i := range notes {
		n := &notes[i]
		if n.ID == exclude || n.Type != domain.DocumentTypeCreditNote {
			continue
		}
		if n.State == domain.StateVoided || n.State == domain.StateRejected {
			continue
		}
		sum = sum.Add(n.Totals.GrandTotal)
	}
	return sum, nil
}

func (s *documentService) checkCreditCap(ctx context.Context, original, note *domain.FiscalDocument) error {
	if note.Type != domain.DocumentTypeCreditNote {
		return nil
	}
	credited, err := s.creditedTotal(ctx, original.ID, note.ID)
	if err != nil {
		return err
	}
	if credited.Add(note.Totals.GrandTotal).GreaterThan(original.Totals.GrandTotal) {
		return fmt.Errorf("%w: original %s, already credited %s, note %s", domain.ErrCreditExceedsOriginal,
			domain.FormatMoney(original.Totals.GrandTotal), domain.FormatMoney(credited), domain.FormatMoney(note.Totals.GrandTotal))
	}
	return nil
}

// checkCorrectionTarget re-validates a note against its original at emission,
// since the original may have moved on since the draft was created.
func (s *documentService) checkCorrectionTarget(ctx context.Context, note *domain.FiscalDocument, verr *domain.ValidationError) error {
	original, err := s.Documents.GetByID(ctx, note.Correction.OriginalID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		verr.Add("correction.original_id", "original document not found")
		return nil
	}
	if err != nil {
		return err
	}
	if !domain.Correctable(original.State) {
		return fmt.Errorf("original is %s: %w", original.State, domain.ErrCorrectionNotAllowed)
	}
	return s.checkCreditCap(ctx, original, note)
}

func (s *documentService) ListCorrections(ctx context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error) {
	if _, err := s.Documents.GetByID(ctx, originalID); err != nil {
		return nil, err
	}
	return s.Documents.ListCorrections(ctx, originalID)
}
