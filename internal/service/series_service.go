package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// CreateSeriesInput is the DTO for opening a numbering series.
type CreateSeriesInput struct {
	Code         string `json:"code" validate:"required,len=4,uppercase"`
	DocumentType string `json:"document_type" validate:"required"`
	StartAfter   int64  `json:"start_after" validate:"gte=0"`
	MaxNumber    int64  `json:"max_number" validate:"gte=0"`
	IsDefault    bool   `json:"is_default"`
}

// SeriesService defines the series administration contract.
type SeriesService interface {
	Create(ctx context.Context, input *CreateSeriesInput) (*domain.DocumentSeries, error)
	Get(ctx context.Context, code string) (*domain.DocumentSeries, error)
	List(ctx context.Context, docType string) ([]domain.DocumentSeries, error)
	SetActive(ctx context.Context, code string, active bool) (*domain.DocumentSeries, error)
}

type seriesService struct {
	store port.SeriesStore
	log   logrus.FieldLogger
}

// NewSeriesService creates a new SeriesService implementation.
func NewSeriesService(store port.SeriesStore, log logrus.FieldLogger) SeriesService {
	return &seriesService{store: store, log: log}
}

func (s *seriesService) Create(ctx context.Context, input *CreateSeriesInput) (*domain.DocumentSeries, error) {
	verr := validateInput(input)
	docType, ok := domain.ParseDocumentType(input.DocumentType)
	if input.DocumentType != "" && !ok {
		verr.Addf("document_type", "unknown document type %q", input.DocumentType)
	}
	if verr.HasErrors() {
		return nil, verr
	}
	if err := domain.ValidateSeriesCode(input.Code, docType); err != nil {
		return nil, err
	}

	maxNumber := input.MaxNumber
	if maxNumber == 0 {
		maxNumber = domain.MaxDocumentNumber
	}
	if maxNumber > domain.MaxDocumentNumber {
		return nil, domain.NewValidationError("max_number", fmt.Sprintf("must not exceed %d", domain.MaxDocumentNumber))
	}
	if input.StartAfter >= maxNumber {
		return nil, domain.NewValidationError("start_after", "must be below max_number")
	}

	sr := &domain.DocumentSeries{
		Code:          input.Code,
		DocumentType:  docType,
		CurrentNumber: input.StartAfter,
		MaxNumber:     maxNumber,
		IsDefault:     input.IsDefault,
		IsActive:      true,
	}
	if err := s.store.Create(ctx, sr); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"series": sr.Code, "document_type": sr.DocumentType, "default": sr.IsDefault}).
		Info("series opened")
	return sr, nil
}

func (s *seriesService) Get(ctx context.Context, code string) (*domain.DocumentSeries, error) {
	return s.store.Get(ctx, code)
}

func (s *seriesService) List(ctx context.Context, docType string) ([]domain.DocumentSeries, error) {
	var t domain.DocumentType
	if docType != "" {
		parsed, ok := domain.ParseDocumentType(docType)
		if !ok {
			return nil, domain.NewValidationError("document_type", fmt.Sprintf("unknown document type %q", docType))
		}
		t = parsed
	}
	return s.store.List(ctx, t)
}

func (s *seriesService) SetActive(ctx context.Context, code string, active bool) (*domain.DocumentSeries, error) {
	if err := s.store.SetActive(ctx, code, active); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"series": code, "active": active}).Info("series activation changed")
	return s.store.Get(ctx, code)
}

// DefaultSeries mirrors the series seeded by the database migrations. Stores
// without migrations are seeded from it at startup.
var DefaultSeries = []CreateSeriesInput{
	{Code: "F001", DocumentType: "invoice", IsDefault: true},
	{Code: "B001", DocumentType: "receipt", IsDefault: true},
	{Code: "FC01", DocumentType: "07", IsDefault: true},
	{Code: "FD01", DocumentType: "08", IsDefault: true},
	{Code: "BC01", DocumentType: "07"},
	{Code: "BD01", DocumentType: "08"},
}

// SeedSeries opens every series in inputs that does not exist yet and
// reports how many were created.
func SeedSeries(ctx context.Context, svc SeriesService, inputs []CreateSeriesInput) (int, error) {
	created := 0
	for i := range inputs {
		in := inputs[i]
		if _, err := svc.Create(ctx, &in); err != nil {
			if errors.Is(err, domain.ErrSeriesExists) {
				continue
			}
			return created, fmt.Errorf("seeding series %s: %w", in.Code, err)
		}
		created++
	}
	return created, nil
}
