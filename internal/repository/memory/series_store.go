package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type seriesStore struct {
	mu     sync.Mutex
	series map[string]*domain.DocumentSeries
}

// NewSeriesStore creates a process-local SeriesStore. Compare-and-increment is
// atomic within the process only.
func NewSeriesStore() port.SeriesStore {
	return &seriesStore{series: make(map[string]*domain.DocumentSeries)}
}

func (s *seriesStore) Create(_ context.Context, series *domain.DocumentSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.series[series.Code]; exists {
		return domain.ErrSeriesExists
	}
	if series.IsDefault {
		for _, other := range s.series {
			if other.DocumentType == series.DocumentType {
				other.IsDefault = false
			}
		}
	}
	now := time.Now().UTC()
	series.CreatedAt, series.UpdatedAt = now, now
	cp := *series
	s.series[series.Code] = &cp
	return nil
}

func (s *seriesStore) Get(_ context.Context, code string) (*domain.DocumentSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[code]
	if !ok {
		return nil, domain.ErrSeriesNotFound
	}
	cp := *series
	return &cp, nil
}

func (s *seriesStore) GetDefault(_ context.Context, docType domain.DocumentType) (*domain.DocumentSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, series := range s.series {
		if series.DocumentType == docType && series.IsDefault && series.IsActive {
			cp := *series
			return &cp, nil
		}
	}
	return nil, domain.ErrNoDefaultSeries
}

func (s *seriesStore) List(_ context.Context, docType domain.DocumentType) ([]domain.DocumentSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DocumentSeries, 0, len(s.series))
	for _, series := range s.series {
		if docType == "" || series.DocumentType == docType {
			out = append(out, *series)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *seriesStore) SetActive(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[code]
	if !ok {
		return domain.ErrSeriesNotFound
	}
	series.IsActive = active
	series.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *seriesStore) CompareAndIncrement(_ context.Context, code string, expected int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[code]
	if !ok {
		return false, domain.ErrSeriesNotFound
	}
	if series.CurrentNumber != expected || series.CurrentNumber >= series.MaxNumber {
		return false, nil
	}
	series.CurrentNumber++
	series.UpdatedAt = time.Now().UTC()
	return true, nil
}
