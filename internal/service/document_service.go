package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/series"
)

const minVoidReasonLength = 10

// LineInput is the DTO for one cart line.
type LineInput struct {
	ProductID       *uuid.UUID         `json:"product_id"`
	ProductCode     string             `json:"product_code" validate:"max=30"`
	Description     string             `json:"description" validate:"required,max=500"`
	Unit            string             `json:"unit" validate:"required,max=3"`
	Quantity        decimal.Decimal    `json:"quantity"`
	UnitPrice       decimal.Decimal    `json:"unit_price"`
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	Affectation     domain.Affectation `json:"affectation" validate:"required,oneof=10 20 30 40"`
	FreeOfCharge    bool               `json:"free_of_charge"`
}

// CreateDraftInput is the DTO for opening an invoice or receipt draft.
type CreateDraftInput struct {
	DocumentType     string          `json:"document_type" validate:"required"`
	SeriesCode       string          `json:"series" validate:"omitempty,len=4,uppercase"`
	Currency         string          `json:"currency" validate:"required,len=3"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	PriceIncludesTax bool            `json:"price_includes_tax"`
	IssueDate        *time.Time      `json:"issue_date"`
	DueDate          *time.Time      `json:"due_date"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	Notes            string          `json:"notes" validate:"max=1000"`
	Lines            []LineInput     `json:"lines" validate:"required,min=1,dive"`
}

// CalculateInput is the DTO for a pre-emission calculation.
type CalculateInput struct {
	Currency         string          `json:"currency" validate:"required,len=3"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	PriceIncludesTax bool            `json:"price_includes_tax"`
	Lines            []LineInput     `json:"lines" validate:"required,min=1,dive"`
}

// ResolutionInput is the DTO for an authority verdict delivered asynchronously.
type ResolutionInput struct {
	DocumentID       uuid.UUID `json:"document_id"`
	Outcome          string    `json:"outcome" validate:"required,oneof=accepted rejected observed"`
	Ticket           string    `json:"ticket" validate:"max=100"`
	Hash             string    `json:"hash" validate:"max=200"`
	ConfirmationCode string    `json:"confirmation_code" validate:"max=100"`
	ResponseCode     string    `json:"response_code" validate:"max=20"`
	Description      string    `json:"description" validate:"max=1000"`
	Observations     []string  `json:"observations"`
}

// DocumentServiceConfig carries the engine settings the service needs.
type DocumentServiceConfig struct {
	HomeCurrency string
	IssuerRUC    string
}

// DocumentServiceDeps groups the collaborators of the document service.
// Artifacts and Notifier are optional.
type DocumentServiceDeps struct {
	Documents      port.DocumentRepository
	Series         port.SeriesStore
	Allocator      *series.Allocator
	HistoryRepo    port.StateHistoryRepository
	SubmissionRepo port.SubmissionRepository
	Customers      port.CustomerLookup
	Products       port.ProductLookup
	Authority      port.AuthorityClient
	Locker         port.Locker
	Artifacts      port.ArtifactStore
	Notifier       port.Notifier
	VoidPolicy     port.VoidPolicy
	Calculator     *calc.Calculator
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// DocumentService defines the fiscal document lifecycle contract.
type DocumentService interface {
	Calculate(ctx context.Context, input *CalculateInput) (*calc.Result, error)
	CreateDraft(ctx context.Context, input *CreateDraftInput) (*domain.FiscalDocument, error)
	UpdateDraftLines(ctx context.Context, id uuid.UUID, lines []LineInput) (*domain.FiscalDocument, error)
	DiscardDraft(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error)
	List(ctx context.Context, filter port.DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error)
	Emit(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error)
	Submit(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error)
	ApplyAuthorityResolution(ctx context.Context, input *ResolutionInput) (*domain.FiscalDocument, error)
	Void(ctx context.Context, id uuid.UUID, reason string) (*domain.FiscalDocument, error)
	CreateCorrection(ctx context.Context, input *CreateCorrectionInput) (*domain.FiscalDocument, error)
	ListCorrections(ctx context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error)
	History(ctx context.Context, id uuid.UUID) ([]domain.StateChange, error)
	Submissions(ctx context.Context, id uuid.UUID) ([]domain.SubmissionAttempt, error)
	QRPayload(ctx context.Context, id uuid.UUID) (string, error)
	ArtifactURL(ctx context.Context, id uuid.UUID) (string, error)
	Artifact(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type documentService struct {
	DocumentServiceDeps
	cfg DocumentServiceConfig
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(deps DocumentServiceDeps, cfg DocumentServiceConfig) DocumentService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &documentService{DocumentServiceDeps: deps, cfg: cfg}
}

func (s *documentService) now() time.Time { return s.Now().UTC() }

func (s *documentService) docLog(doc *domain.FiscalDocument) logrus.FieldLogger {
	fields := logrus.Fields{"document_id": doc.ID, "state": doc.State, "document_type": doc.Type}
	if doc.Number != nil {
		fields["series"] = doc.SeriesCode
		fields["number"] = *doc.Number
	}
	return s.Logger.WithFields(fields)
}

// lockDocument serializes emission, submission, resolution, voiding and
// payment registration on one document.
func (s *documentService) lockDocument(ctx context.Context, id uuid.UUID) (func(), error) {
	return obtainDocumentLock(ctx, s.Locker, s.Logger, id)
}

func obtainDocumentLock(ctx context.Context, locker port.Locker, log logrus.FieldLogger, id uuid.UUID) (func(), error) {
	lock, err := locker.Obtain(ctx, "document:"+id.String())
	if err != nil {
		return nil, err
	}
	return func() {
		// Release on a fresh context so a cancelled request still frees the lease.
		if err := lock.Release(context.Background()); err != nil {
			log.WithField("document_id", id).WithError(err).Warn("releasing document lock")
		}
	}, nil
}

func (s *documentService) recordTransition(ctx context.Context, doc *domain.FiscalDocument, from domain.DocumentState, reason string) {
	change := &domain.StateChange{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		FromState:  from,
		ToState:    doc.State,
		Reason:     reason,
		CreatedAt:  s.now(),
	}
	if err := s.HistoryRepo.Append(ctx, change); err != nil {
		s.docLog(doc).WithError(err).Error("recording state change")
	}
}

// --- Calculation ---

func (s *documentService) Calculate(_ context.Context, input *CalculateInput) (*calc.Result, error) {
	if verr := validateInput(input); verr.HasErrors() {
		return nil, verr
	}
	req := calc.Request{
		Currency:         input.Currency,
		ExchangeRate:     input.ExchangeRate,
		PriceIncludesTax: input.PriceIncludesTax,
		Lines:            make([]calc.LineInput, len(input.Lines)),
	}
	for i, l := range input.Lines {
		req.Lines[i] = calc.LineInput{
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			Affectation:     l.Affectation,
			FreeOfCharge:    l.FreeOfCharge,
		}
	}
	return s.Calculator.Calculate(req)
}

// --- Drafts ---

func lineItemsFromInput(lines []LineInput) []domain.LineItem {
	items := make([]domain.LineItem, len(lines))
	for i, l := range lines {
		items[i] = domain.LineItem{
			Position:        i + 1,
			ProductID:       l.ProductID,
			ProductCode:     l.ProductCode,
			Description:     strings.TrimSpace(l.Description),
			Unit:            l.Unit,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			Affectation:     l.Affectation,
			FreeOfCharge:    l.FreeOfCharge,
		}
	}
	return items
}

func validateUnits(verr *domain.ValidationError, lines []LineInput) {
	for i, l := range lines {
		if l.Unit != "" && !domain.ValidUnitsOfMeasure[l.Unit] {
			verr.Addf(fmt.Sprintf("lines[%d].unit", i), "unknown unit of measure %q", l.Unit)
		}
	}
}

// recalculate runs the full calculation pipeline over the draft and folds any
// validation failure into verr.
func (s *documentService) recalculate(doc *domain.FiscalDocument, verr *domain.ValidationError) error {
	err := s.Calculator.Recalculate(doc)
	if err == nil {
		return nil
	}
	var lineErr *domain.ValidationError
	if errors.As(err, &lineErr) {
		verr.Merge("", lineErr)
		return nil
	}
	return err
}

// resolveSeries returns the series code a draft of docType will draw from.
func (s *documentService) resolveSeries(ctx context.Context, code string, docType domain.DocumentType) (string, error) {
	if code == "" {
		def, err := s.Series.GetDefault(ctx, docType)
		if err != nil {
			return "", err
		}
		return def.Code, nil
	}
	if err := domain.ValidateSeriesCode(code, docType); err != nil {
		return "", err
	}
	sr, err := s.Series.Get(ctx, code)
	if err != nil {
		return "", err
	}
	if sr.DocumentType != docType {
		return "", fmt.Errorf("series %s: %w", code, domain.ErrSeriesTypeMismatch)
	}
	return code, nil
}

func (s *documentService) CreateDraft(ctx context.Context, input *CreateDraftInput) (*domain.FiscalDocument, error) {
	verr := validateInput(input)
	validateUnits(verr, input.Lines)
	docType, ok := domain.ParseDocumentType(input.DocumentType)
	if !ok {
		verr.Addf("document_type", "unknown document type %q", input.DocumentType)
	} else if docType.IsNote() {
		verr.Add("document_type", "credit and debit notes are created as corrections of an original document")
	}
	if input.CustomerID == uuid.Nil {
		verr.Add("customer_id", "is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if _, err := s.Customers.GetCustomer(ctx, input.CustomerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, domain.NewValidationError("customer_id", "customer not found")
		}
		return nil, fmt.Errorf("looking up customer: %w", err)
	}

	seriesCode, err := s.resolveSeries(ctx, input.SeriesCode, docType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	issueDate := now.Truncate(24 * time.Hour)
	if input.IssueDate != nil {
		issueDate = input.IssueDate.UTC()
	}
	doc := &domain.FiscalDocument{
		ID:               uuid.New(),
		Type:             docType,
		SeriesCode:       seriesCode,
		Currency:         input.Currency,
		ExchangeRate:     input.ExchangeRate,
		PriceIncludesTax: input.PriceIncludesTax,
		IssueDate:        issueDate,
		DueDate:          input.DueDate,
		CustomerID:       input.CustomerID,
		Lines:            lineItemsFromInput(input.Lines),
		State:            domain.StateDraft,
		Notes:            input.Notes,
	}
	if err := s.recalculate(doc, verr); err != nil {
		return nil, err
	}
	variant, _ := domain.VariantOf(docType)
	verr.Merge("", variant.ValidateShape(doc))
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.Documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}
	s.recordTransition(ctx, doc, "", "draft created")
	s.docLog(doc).Info("draft created")
	return doc, nil
}

func (s *documentService) UpdateDraftLines(ctx context.Context, id uuid.UUID, lines []LineInput) (*domain.FiscalDocument, error) {
	verr := validateInput(&struct {
		Lines []LineInput `json:"lines" validate:"required,min=1,dive"`
	}{Lines: lines})
	validateUnits(verr, lines)
	if verr.HasErrors() {
		return nil, verr
	}

	unlock, err := s.lockDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsDraft() {
		return nil, fmt.Errorf("document is %s: %w", doc.State, domain.ErrDocumentFrozen)
	}

	doc.Lines = lineItemsFromInput(lines)
	if err := s.recalculate(doc, verr); err != nil {
		return nil, err
	}
	if verr.HasErrors() {
		return nil, verr
	}
	if err := s.Documents.UpdateDraft(ctx, doc); err != nil {
		return nil, err
	}
	s.docLog(doc).Info("draft lines updated")
	return doc, nil
}

func (s *documentService) DiscardDraft(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.lockDocument(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Documents.DeleteDraft(ctx, id); err != nil {
		return err
	}
	s.Logger.WithField("document_id", id).Info("draft discarded")
	return nil
}

func (s *documentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	return s.Documents.GetByID(ctx, id)
}

func (s *documentService) List(ctx context.Context, filter port.DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error) {
	return s.Documents.List(ctx, filter, offset, limit)
}

// --- Emission ---

// validateForEmission collects every reason the draft cannot become a legal
// document. Nothing is mutated except the draft's derived amounts.
func (s *documentService) validateForEmission(ctx context.Context, doc *domain.FiscalDocument) (*domain.Customer, *domain.ValidationError, error) {
	verr := &domain.ValidationError{}
	now := s.now()

	variant, ok := domain.VariantOf(doc.Type)
	if !ok {
		verr.Add("document_type", "unsupported document type")
		return nil, verr, nil
	}
	verr.Merge("", variant.ValidateShape(doc))
	if err := domain.ValidateSeriesCode(doc.SeriesCode, doc.Type); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			verr.Merge("", ve)
		}
	}

	if err := s.recalculate(doc, verr); err != nil {
		return nil, nil, err
	}
	if len(doc.Lines) > 0 && !doc.Totals.GrandTotal.IsPositive() {
		verr.Add("grand_total", "grand total must be greater than zero")
	}

	today := now.Truncate(24 * time.Hour)
	if doc.IssueDate.After(today.Add(24*time.Hour - time.Nanosecond)) {
		verr.Add("issue_date", "issue date cannot be in the future")
	}
	if doc.DueDate != nil && doc.DueDate.Before(doc.IssueDate) {
		verr.Add("due_date", "due date cannot be before the issue date")
	}

	customer, err := s.Customers.GetCustomer(ctx, doc.CustomerID)
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		verr.Add("customer_id", "customer not found")
		customer = nil
	case err != nil:
		return nil, nil, fmt.Errorf("looking up customer: %w", err)
	default:
		checkCustomer(verr, variant, customer)
	}

	for i := range doc.Lines {
		if err := s.checkProduct(ctx, verr, i, &doc.Lines[i]); err != nil {
			return nil, nil, err
		}
	}
	return customer, verr, nil
}

func checkCustomer(verr *domain.ValidationError, variant domain.DocumentVariant, c *domain.Customer) {
	if !c.IsActive {
		verr.Add("customer_id", "customer is inactive")
	}
	if c.IsBlocked {
		msg := "customer is blocked"
		if c.BlockReason != "" {
			msg += ": " + c.BlockReason
		}
		verr.Add("customer_id", msg)
	}
	if variant.RequiresRUC && c.IdentityType != domain.IdentityRUC {
		verr.Add("customer.identity_type", "invoices require a customer identified by RUC")
	}
	if variant.Type == domain.DocumentTypeReceipt && c.RequiresInvoice {
		verr.Add("document_type", "customer requires an invoice")
	}
	if err := domain.ValidateIdentity(c.IdentityType, c.IdentityNumber); err != nil {
		verr.Add("customer.identity_number", err.Error())
	}
}

func (s *documentService) checkProduct(ctx context.Context, verr *domain.ValidationError, i int, line *domain.LineItem) error {
	if line.ProductID == nil {
		return nil
	}
	field := fmt.Sprintf("lines[%d].product_id", i)
	p, err := s.Products.GetProduct(ctx, *line.ProductID)
	if errors.Is(err, domain.ErrProductNotFound) {
		verr.Add(field, "product not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up product: %w", err)
	}
	if !p.IsActive {
		verr.Addf(field, "product %s is inactive", p.Code)
	}
	if !p.IsSellable {
		verr.Addf(field, "product %s is not sellable", p.Code)
	}
	if line.DiscountPercent.IsPositive() {
		discountField := fmt.Sprintf("lines[%d].discount_percent", i)
		switch {
		case !p.DiscountAllowed:
			verr.Addf(discountField, "product %s does not allow discounts", p.Code)
		case p.MaxDiscountPercent.IsPositive() && line.DiscountPercent.GreaterThan(p.MaxDiscountPercent):
			verr.Addf(discountField, "discount exceeds the product maximum of %s%%", p.MaxDiscountPercent.String())
		}
	}
	return nil
}

func (s *documentService) Emit(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	unlock, err := s.lockDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(doc.State, domain.StateEmitted); err != nil {
		return nil, err
	}

	customer, verr, err := s.validateForEmission(ctx, doc)
	if err != nil {
		return nil, err
	}
	if doc.Type.IsNote() && doc.Correction != nil && doc.Correction.OriginalID != uuid.Nil {
		if err := s.checkCorrectionTarget(ctx, doc, verr); err != nil {
			return nil, err
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	number, err := s.Allocator.Allocate(ctx, doc.SeriesCode, doc.Type)
	if err != nil {
		return nil, err
	}

	emitted := doc.Clone()
	emitted.Number = &number
	emitted.Customer = customer.Snapshot()
	if err := emitted.Transition(domain.StateEmitted); err != nil {
		return nil, err
	}
	now := s.now()
	emitted.EmittedAt = &now

	if err := s.Documents.MarkEmitted(ctx, emitted); err != nil {
		// The number is consumed either way; numbers are never handed out twice.
		s.docLog(emitted).WithError(err).Error("persisting emission failed after number allocation")
		return nil, fmt.Errorf("persisting emission: %w", err)
	}
	s.recordTransition(ctx, emitted, domain.StateDraft, "number allocated, totals frozen")
	s.docLog(emitted).WithField("full_number", domain.FullNumber(emitted.SeriesCode, number)).Info("document emitted")
	return emitted, nil
}

// --- Void ---

func (s *documentService) Void(ctx context.Context, id uuid.UUID, reason string) (*domain.FiscalDocument, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < minVoidReasonLength {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("void reason must be at least %d characters", minVoidReasonLength))
	}

	unlock, err := s.lockDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := doc.State
	if err := domain.CheckTransition(from, domain.StateVoided); err != nil {
		return nil, err
	}
	now := s.now()
	if s.VoidPolicy != nil {
		if err := s.VoidPolicy.CanVoid(doc, now); err != nil {
			return nil, err
		}
	}

	if err := doc.Transition(domain.StateVoided); err != nil {
		return nil, err
	}
	doc.VoidReason = reason
	doc.VoidedAt = &now
	if err := s.Documents.UpdateLifecycle(ctx, doc, from); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, doc, from, reason)
	s.docLog(doc).Info("document voided")
	return doc, nil
}

// --- Read models ---

func (s *documentService) History(ctx context.Context, id uuid.UUID) ([]domain.StateChange, error) {
	if _, err := s.Documents.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.HistoryRepo.ListByDocument(ctx, id)
}

func (s *documentService) Submissions(ctx context.Context, id uuid.UUID) ([]domain.SubmissionAttempt, error) {
	if _, err := s.Documents.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.SubmissionRepo.ListByDocument(ctx, id)
}

func (s *documentService) QRPayload(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Number == nil {
		return "", &domain.StateError{From: doc.State, To: domain.StateEmitted}
	}
	return domain.QRPayload(s.cfg.IssuerRUC, doc), nil
}
