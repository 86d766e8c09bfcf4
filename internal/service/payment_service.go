package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/ledger"
	"fiscaldoc/internal/port"
)

// RegisterPaymentInput is the DTO for adding a payment to a document.
// Currency defaults to the document currency.
type RegisterPaymentInput struct {
	DocumentID   uuid.UUID       `json:"-"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Method       string          `json:"method" validate:"required,oneof=cash card transfer wallet check credit"`
	PaidOn       *time.Time      `json:"paid_on"`
	Reference    string          `json:"reference" validate:"max=100"`
}

// PaymentResult is a stored payment with the settlement it produced.
type PaymentResult struct {
	Payment    *domain.Payment   `json:"payment"`
	Settlement domain.Settlement `json:"settlement"`
}

// PaymentService defines the payment ledger contract.
type PaymentService interface {
	RegisterPayment(ctx context.Context, input *RegisterPaymentInput) (*PaymentResult, error)
	ListPayments(ctx context.Context, documentID uuid.UUID) ([]domain.Payment, domain.Settlement, error)
}

type paymentService struct {
	docRepo      port.DocumentRepository
	paymentRepo  port.PaymentRepository
	locker       port.Locker
	ledger       *ledger.Ledger
	homeCurrency string
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewPaymentService creates a new PaymentService implementation.
func NewPaymentService(
	docRepo port.DocumentRepository,
	paymentRepo port.PaymentRepository,
	locker port.Locker,
	l *ledger.Ledger,
	homeCurrency string,
	log logrus.FieldLogger,
) PaymentService {
	return &paymentService{
		docRepo:      docRepo,
		paymentRepo:  paymentRepo,
		locker:       locker,
		ledger:       l,
		homeCurrency: homeCurrency,
		log:          log,
		now:          time.Now,
	}
}

// RegisterPayment appends a payment. The read-check-append sequence runs under
// the document lock so concurrent payments cannot jointly overshoot the total.
func (s *paymentService) RegisterPayment(ctx context.Context, input *RegisterPaymentInput) (*PaymentResult, error) {
	if verr := validateInput(input); verr.HasErrors() {
		return nil, verr
	}
	if !input.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "payment amount must be greater than zero")
	}

	unlock, err := obtainDocumentLock(ctx, s.locker, s.log, input.DocumentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if !domain.PaymentsAccepted(doc.State) {
		return nil, fmt.Errorf("document is %s: %w", doc.State, domain.ErrPaymentNotAllowed)
	}

	currency := input.Currency
	if currency == "" {
		currency = doc.Currency
	}
	applied, err := calc.ApplyPayment(input.Amount, currency, input.ExchangeRate, doc, s.homeCurrency)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CheckAddition(doc.Totals.GrandTotal, payments, applied); err != nil {
		return nil, err
	}

	paidOn := s.now().UTC()
	if input.PaidOn != nil {
		paidOn = input.PaidOn.UTC()
	}
	rate := input.ExchangeRate
	if currency == doc.Currency {
		rate = decimal.NewFromInt(1)
	} else if rate.IsZero() {
		rate = doc.ExchangeRate
	}
	p := &domain.Payment{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		Amount:        domain.RoundMoney(input.Amount),
		Currency:      currency,
		ExchangeRate:  rate,
		AppliedAmount: applied,
		Method:        domain.PaymentMethod(input.Method),
		PaidOn:        paidOn,
		Reference:     input.Reference,
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("storing payment: %w", err)
	}

	settlement := ledger.Settle(doc.Totals.GrandTotal, append(payments, *p))
	s.log.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"payment_id":  p.ID,
		"applied":     domain.FormatMoney(applied),
		"settlement":  settlement.Status,
	}).Info("payment registered")
	return &PaymentResult{Payment: p, Settlement: settlement}, nil
}

func (s *paymentService) ListPayments(ctx context.Context, documentID uuid.UUID) ([]domain.Payment, domain.Settlement, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, domain.Settlement{}, err
	}
	payments, err := s.paymentRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, domain.Settlement{}, err
	}
	return payments, ledger.Settle(doc.Totals.GrandTotal, payments), nil
}
