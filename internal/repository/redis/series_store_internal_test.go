package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
)

func TestSeriesEncoding(t *testing.T) {
	created := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	in := &domain.DocumentSeries{
		Code:          "F001",
		DocumentType:  domain.DocumentTypeInvoice,
		CurrentNumber: 10,
		MaxNumber:     99999999,
		IsDefault:     true,
		IsActive:      true,
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	raw := encodeSeries(in)
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = v.(string)
	}

	out, err := decodeSeries("F001", fields)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeSeries_BadCounter(t *testing.T) {
	_, err := decodeSeries("F001", map[string]string{fieldCurrent: "x", fieldMax: "10"})
	assert.Error(t, err)
}

func TestKeysShareHashTag(t *testing.T) {
	s := &seriesStore{prefix: "fiscal:"}
	assert.Equal(t, "fiscal:{series}:F001", s.key("F001"))
	assert.Equal(t, "fiscal:{series}:index", s.indexKey())
	assert.Equal(t, "fiscal:{series}:default:01", s.defaultKey(domain.DocumentTypeInvoice))
}

func TestParseInt(t *testing.T) {
	n, err := parseInt("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = parseInt(42)
	assert.Error(t, err)
}
