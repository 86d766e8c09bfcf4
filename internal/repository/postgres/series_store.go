package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type seriesStore struct {
	db *sqlx.DB
}

// NewSeriesStore creates a PostgreSQL-backed SeriesStore. The counter row is
// the single source of truth; increments are conditional updates on it.
func NewSeriesStore(db *sqlx.DB) port.SeriesStore {
	return &seriesStore{db: db}
}

const seriesColumns = "code, document_type, current_number, max_number, is_default, is_active, created_at, updated_at"

func (s *seriesStore) Create(ctx context.Context, series *domain.DocumentSeries) error {
	now := time.Now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now

	err := txFunc(ctx, s.db, func(tx *sqlx.Tx) error {
		if series.IsDefault {
			if _, err := tx.ExecContext(ctx,
				"UPDATE document_series SET is_default = FALSE, updated_at = $1 WHERE document_type = $2 AND is_default",
				now, string(series.DocumentType)); err != nil {
				return err
			}
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO document_series (`+seriesColumns+`)
			VALUES (:code, :document_type, :current_number, :max_number, :is_default, :is_active, :created_at, :updated_at)`,
			series)
		return err
	})
	if err != nil {
		if isUniqueViolation(err, "document_series_pkey") {
			return domain.ErrSeriesExists
		}
		return fmt.Errorf("seriesStore.Create: %w", err)
	}
	return nil
}

func (s *seriesStore) Get(ctx context.Context, code string) (*domain.DocumentSeries, error) {
	var series domain.DocumentSeries
	err := s.db.GetContext(ctx, &series, "SELECT "+seriesColumns+" FROM document_series WHERE code = $1", code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSeriesNotFound
		}
		return nil, fmt.Errorf("seriesStore.Get: %w", err)
	}
	return &series, nil
}

func (s *seriesStore) GetDefault(ctx context.Context, docType domain.DocumentType) (*domain.DocumentSeries, error) {
	var series domain.DocumentSeries
	err := s.db.GetContext(ctx, &series,
		"SELECT "+seriesColumns+" FROM document_series WHERE document_type = $1 AND is_default AND is_active",
		string(docType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoDefaultSeries
		}
		return nil, fmt.Errorf("seriesStore.GetDefault: %w", err)
	}
	return &series, nil
}

func (s *seriesStore) List(ctx context.Context, docType domain.DocumentType) ([]domain.DocumentSeries, error) {
	query := "SELECT " + seriesColumns + " FROM document_series"
	var args []interface{}
	if docType != "" {
		query += " WHERE document_type = $1"
		args = append(args, string(docType))
	}
	query += " ORDER BY code"

	series := []domain.DocumentSeries{}
	if err := s.db.SelectContext(ctx, &series, query, args...); err != nil {
		return nil, fmt.Errorf("seriesStore.List: %w", err)
	}
	return series, nil
}

func (s *seriesStore) SetActive(ctx context.Context, code string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE document_series SET is_active = $1, updated_at = $2 WHERE code = $3",
		active, time.Now().UTC(), code)
	if err != nil {
		return fmt.Errorf("seriesStore.SetActive: %w", err)
	}
	rows, err := rowsAffected(result, "seriesStore.SetActive")
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSeriesNotFound
	}
	return nil
}

func (s *seriesStore) CompareAndIncrement(ctx context.Context, code string, expected int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE document_series SET current_number = current_number + 1, updated_at = $1
		WHERE code = $2 AND current_number = $3 AND current_number < max_number`,
		time.Now().UTC(), code, expected)
	if err != nil {
		return false, fmt.Errorf("seriesStore.CompareAndIncrement: %w", err)
	}
	rows, err := rowsAffected(result, "seriesStore.CompareAndIncrement")
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM document_series WHERE code = $1)", code); err != nil {
		return false, fmt.Errorf("seriesStore.CompareAndIncrement: %w", err)
	}
	if !exists {
		return false, domain.ErrSeriesNotFound
	}
	return false, nil
}
