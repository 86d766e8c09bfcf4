package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// Each series is a hash; a set indexes all codes and one string key per
// document type names its default series. All keys carry the {series} hash
// tag so multi-key WATCH also works on a cluster.
const (
	fieldType    = "document_type"
	fieldCurrent = "current_number"
	fieldMax     = "max_number"
	fieldDefault = "is_default"
	fieldActive  = "is_active"
	fieldCreated = "created_at"
	fieldUpdated = "updated_at"
)

type seriesStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewSeriesStore creates a SeriesStore on Redis. Compare-and-increment runs
// under WATCH, so concurrent writers on the same series see a conflict
// instead of a lost update.
func NewSeriesStore(client goredis.UniversalClient, prefix string) port.SeriesStore {
	return &seriesStore{client: client, prefix: prefix}
}

func (s *seriesStore) key(code string) string {
	return s.prefix + "{series}:" + code
}

func (s *seriesStore) indexKey() string {
	return s.prefix + "{series}:index"
}

func (s *seriesStore) defaultKey(t domain.DocumentType) string {
	return s.prefix + "{series}:default:" + string(t)
}

func (s *seriesStore) Create(ctx context.Context, series *domain.DocumentSeries) error {
	now := time.Now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now
	key := s.key(series.Code)
	defKey := s.defaultKey(series.DocumentType)

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 1 {
			return domain.ErrSeriesExists
		}
		previous, err := tx.Get(ctx, defKey).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeSeries(series))
			pipe.SAdd(ctx, s.indexKey(), series.Code)
			if series.IsDefault {
				if previous != "" {
					pipe.HSet(ctx, s.key(previous), fieldDefault, "0", fieldUpdated, formatTime(now))
				}
				pipe.Set(ctx, defKey, series.Code, 0)
			}
			return nil
		})
		return err
	}, key, defKey)
	if errors.Is(err, domain.ErrSeriesExists) {
		return err
	}
	if errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("seriesStore.Create %s: concurrent modification: %w", series.Code, domain.ErrSeriesExists)
	}
	if err != nil {
		return fmt.Errorf("seriesStore.Create: %w", err)
	}
	return nil
}

func (s *seriesStore) Get(ctx context.Context, code string) (*domain.DocumentSeries, error) {
	fields, err := s.client.HGetAll(ctx, s.key(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("seriesStore.Get: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSeriesNotFound
	}
	series, err := decodeSeries(code, fields)
	if err != nil {
		return nil, fmt.Errorf("seriesStore.Get: %w", err)
	}
	return series, nil
}

func (s *seriesStore) GetDefault(ctx context.Context, docType domain.DocumentType) (*domain.DocumentSeries, error) {
	code, err := s.client.Get(ctx, s.defaultKey(docType)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNoDefaultSeries
	}
	if err != nil {
		return nil, fmt.Errorf("seriesStore.GetDefault: %w", err)
	}
	series, err := s.Get(ctx, code)
	if errors.Is(err, domain.ErrSeriesNotFound) || (err == nil && !series.IsActive) {
		return nil, domain.ErrNoDefaultSeries
	}
	return series, err
}

func (s *seriesStore) List(ctx context.Context, docType domain.DocumentType) ([]domain.DocumentSeries, error) {
	codes, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("seriesStore.List: %w", err)
	}
	sort.Strings(codes)

	out := make([]domain.DocumentSeries, 0, len(codes))
	for _, code := range codes {
		series, err := s.Get(ctx, code)
		if errors.Is(err, domain.ErrSeriesNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if docType == "" || series.DocumentType == docType {
			out = append(out, *series)
		}
	}
	return out, nil
}

func (s *seriesStore) SetActive(ctx context.Context, code string, active bool) error {
	key := s.key(code)
	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrSeriesNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldActive, formatBool(active), fieldUpdated, formatTime(time.Now().UTC()))
			return nil
		})
		return err
	}, key)
	if errors.Is(err, domain.ErrSeriesNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("seriesStore.SetActive: %w", err)
	}
	return nil
}

func (s *seriesStore) CompareAndIncrement(ctx context.Context, code string, expected int64) (bool, error) {
	key := s.key(code)
	var incremented bool

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		vals, err := tx.HMGet(ctx, key, fieldCurrent, fieldMax).Result()
		if err != nil {
			return err
		}
		if vals[0] == nil || vals[1] == nil {
			return domain.ErrSeriesNotFound
		}
		current, err := parseInt(vals[0])
		if err != nil {
			return err
		}
		maxNumber, err := parseInt(vals[1])
		if err != nil {
			return err
		}
		if current != expected || current >= maxNumber {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HIncrBy(ctx, key, fieldCurrent, 1)
			pipe.HSet(ctx, key, fieldUpdated, formatTime(time.Now().UTC()))
			return nil
		})
		if err == nil {
			incremented = true
		}
		return err
	}, key)

	switch {
	case errors.Is(err, goredis.TxFailedErr):
		// Another writer touched the counter between WATCH and EXEC.
		return false, nil
	case errors.Is(err, domain.ErrSeriesNotFound):
		return false, err
	case err != nil:
		return false, fmt.Errorf("seriesStore.CompareAndIncrement: %w", err)
	}
	return incremented, nil
}

func encodeSeries(s *domain.DocumentSeries) map[string]interface{} {
	return map[string]interface{}{
		fieldType:    string(s.DocumentType),
		fieldCurrent: formatInt(s.CurrentNumber),
		fieldMax:     formatInt(s.MaxNumber),
		fieldDefault: formatBool(s.IsDefault),
		fieldActive:  formatBool(s.IsActive),
		fieldCreated: formatTime(s.CreatedAt),
		fieldUpdated: formatTime(s.UpdatedAt),
	}
}

func decodeSeries(code string, f map[string]string) (*domain.DocumentSeries, error) {
	current, err := strconv.ParseInt(f[fieldCurrent], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("series %s: bad %s: %w", code, fieldCurrent, err)
	}
	maxNumber, err := strconv.ParseInt(f[fieldMax], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("series %s: bad %s: %w", code, fieldMax, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, f[fieldCreated])
	updated, _ := time.Parse(time.RFC3339Nano, f[fieldUpdated])
	return &domain.DocumentSeries{
		Code:          code,
		DocumentType:  domain.DocumentType(f[fieldType]),
		CurrentNumber: current,
		MaxNumber:     maxNumber,
		IsDefault:     f[fieldDefault] == "1",
		IsActive:      f[fieldActive] == "1",
		CreatedAt:     created,
		UpdatedAt:     updated,
	}, nil
}

func parseInt(v interface{}) (int64, error) {
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
	return strconv.ParseInt(str, 10, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
