package series_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/repository/memory"
	"fiscaldoc/internal/series"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedSeries(t *testing.T, store port.SeriesStore, code string, current, max int64) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &domain.DocumentSeries{
		Code:          code,
		DocumentType:  domain.DocumentTypeInvoice,
		CurrentNumber: current,
		MaxNumber:     max,
		IsActive:      true,
	}))
}

func TestAllocate_Sequential(t *testing.T) {
	store := memory.NewSeriesStore()
	seedSeries(t, store, "F001", 0, domain.MaxDocumentNumber)
	a := series.NewAllocator(store, series.Config{}, quietLogger())

	for want := int64(1); want <= 3; want++ {
		n, err := a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestAllocate_TwoConcurrentCallersFromTen(t *testing.T) {
	store := memory.NewSeriesStore()
	seedSeries(t, store, "F001", 10, domain.MaxDocumentNumber)
	a := series.NewAllocator(store, series.Config{MaxAttempts: 2}, quietLogger())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int64
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)
			if assert.NoError(t, err) {
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []int64{11, 12}, got)
}

func TestAllocate_ConcurrentCallersGetDistinctContiguousNumbers(t *testing.T) {
	const n = 50
	store := memory.NewSeriesStore()
	seedSeries(t, store, "F001", 0, domain.MaxDocumentNumber)
	// Every lost race means another caller won, so n attempts always suffice.
	a := series.NewAllocator(store, series.Config{MaxAttempts: n}, quietLogger())

	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestAllocate_Exhausted(t *testing.T) {
	store := memory.NewSeriesStore()
	seedSeries(t, store, "F001", 2, 3)
	a := series.NewAllocator(store, series.Config{}, quietLogger())

	n, err := a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)
	assert.ErrorIs(t, err, domain.ErrSeriesExhausted)

	s, err := store.Get(context.Background(), "F001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.CurrentNumber)
}

func TestAllocate_Rejections(t *testing.T) {
	store := memory.NewSeriesStore()
	seedSeries(t, store, "F001", 0, 10)
	require.NoError(t, store.Create(context.Background(), &domain.DocumentSeries{
		Code: "F002", DocumentType: domain.DocumentTypeInvoice, MaxNumber: 10, IsActive: false,
	}))
	a := series.NewAllocator(store, series.Config{}, quietLogger())
	ctx := context.Background()

	_, err := a.Allocate(ctx, "F001", domain.DocumentTypeReceipt)
	assert.ErrorIs(t, err, domain.ErrSeriesTypeMismatch)

	_, err = a.Allocate(ctx, "F002", domain.DocumentTypeInvoice)
	assert.ErrorIs(t, err, domain.ErrSeriesInactive)

	_, err = a.Allocate(ctx, "F999", domain.DocumentTypeInvoice)
	assert.ErrorIs(t, err, domain.ErrSeriesNotFound)
}

// contendedStore loses every compare-and-increment.
type contendedStore struct {
	port.SeriesStore
	calls int
}

func (s *contendedStore) CompareAndIncrement(context.Context, string, int64) (bool, error) {
	s.calls++
	return false, nil
}

func TestAllocate_BusyAfterBoundedRetries(t *testing.T) {
	inner := memory.NewSeriesStore()
	seedSeries(t, inner, "F001", 0, 10)
	store := &contendedStore{SeriesStore: inner}
	a := series.NewAllocator(store, series.Config{MaxAttempts: 3}, quietLogger())

	_, err := a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)

	assert.ErrorIs(t, err, domain.ErrSeriesBusy)
	assert.Equal(t, 3, store.calls)
}

type failingStore struct {
	port.SeriesStore
}

func (failingStore) CompareAndIncrement(context.Context, string, int64) (bool, error) {
	return false, errors.New("connection reset")
}

func TestAllocate_StoreErrorIsNotRetried(t *testing.T) {
	inner := memory.NewSeriesStore()
	seedSeries(t, inner, "F001", 0, 10)
	a := series.NewAllocator(failingStore{SeriesStore: inner}, series.Config{}, quietLogger())

	_, err := a.Allocate(context.Background(), "F001", domain.DocumentTypeInvoice)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSeriesBusy)
	assert.Contains(t, err.Error(), "connection reset")
}
