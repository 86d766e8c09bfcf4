// Package series hands out document numbers. A number is drawn with an
// optimistic compare-and-increment against the counter store; a lost race is
// retried with a fresh read and never reuses the stale value.
package series

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

const defaultMaxAttempts = 5

// Config tunes the allocation retry loop. Backoff grows linearly per attempt;
// zero retries immediately.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Allocator assigns strictly increasing numbers per series.
type Allocator struct {
	store       port.SeriesStore
	maxAttempts int
	backoff     time.Duration
	log         logrus.FieldLogger
}

// NewAllocator creates an Allocator over store.
func NewAllocator(store port.SeriesStore, cfg Config, log logrus.FieldLogger) *Allocator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	return &Allocator{store: store, maxAttempts: cfg.MaxAttempts, backoff: cfg.Backoff, log: log}
}

// Allocate draws the next number of series code for docType.
//
// Errors: domain.ErrSeriesNotFound, domain.ErrSeriesTypeMismatch,
// domain.ErrSeriesInactive, domain.ErrSeriesExhausted, and domain.ErrSeriesBusy
// once every attempt lost its race.
func (a *Allocator) Allocate(ctx context.Context, code string, docType domain.DocumentType) (int64, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		s, err := a.store.Get(ctx, code)
		if err != nil {
			return 0, fmt.Errorf("allocating %s: %w", code, err)
		}
		if s.DocumentType != docType {
			return 0, fmt.Errorf("series %s is for %s: %w", code, s.DocumentType.Name(), domain.ErrSeriesTypeMismatch)
		}
		if !s.IsActive {
			return 0, fmt.Errorf("series %s: %w", code, domain.ErrSeriesInactive)
		}
		if s.Exhausted() {
			return 0, fmt.Errorf("series %s reached %d: %w", code, s.MaxNumber, domain.ErrSeriesExhausted)
		}

		ok, err := a.store.CompareAndIncrement(ctx, code, s.CurrentNumber)
		if err != nil {
			return 0, fmt.Errorf("allocating %s: %w", code, err)
		}
		if ok {
			return s.CurrentNumber + 1, nil
		}

		a.log.WithFields(logrus.Fields{
			"series":   code,
			"expected": s.CurrentNumber,
			"attempt":  attempt,
		}).Debug("series counter moved, retrying allocation")

		if attempt < a.maxAttempts {
			if err := a.wait(ctx, attempt); err != nil {
				return 0, err
			}
		}
	}
	return 0, fmt.Errorf("series %s after %d attempts: %w", code, a.maxAttempts, domain.ErrSeriesBusy)
}

func (a *Allocator) wait(ctx context.Context, attempt int) error {
	if a.backoff == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.backoff * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
