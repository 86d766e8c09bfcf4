package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"fiscaldoc/internal/domain"
)

func TestValidateRUC(t *testing.T) {
	tests := []struct {
		ruc     string
		wantErr bool
	}{
		{"20000000001", false},
		{"20100070971", false},
		{"20100070970", true}, // check digit
		{"30000000001", true}, // prefix
		{"2000000000", true},
		{"2000000000A", true},
	}
	for _, tt := range tests {
		t.Run(tt.ruc, func(t *testing.T) {
			err := domain.ValidateRUC(tt.ruc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateIdentity(t *testing.T) {
	assert.NoError(t, domain.ValidateIdentity(domain.IdentityDNI, "40123456"))
	assert.Error(t, domain.ValidateIdentity(domain.IdentityDNI, "12345678"))
	assert.Error(t, domain.ValidateIdentity(domain.IdentityDNI, "4012345"))
	assert.NoError(t, domain.ValidateIdentity(domain.IdentityNone, ""))
	assert.NoError(t, domain.ValidateIdentity(domain.IdentityPassport, "X1234567"))
	assert.Error(t, domain.ValidateIdentity(domain.IdentityForeign, "  "))
}

func TestQRPayload(t *testing.T) {
	n := int64(42)
	doc := &domain.FiscalDocument{
		ID:         uuid.New(),
		Type:       domain.DocumentTypeReceipt,
		SeriesCode: "B001",
		Number:     &n,
		IssueDate:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Totals: domain.Totals{
			TaxTotal:   dec("4.58"),
			GrandTotal: dec("30"),
		},
	}
	assert.Equal(t, "20000000001|03|B001|42|4.58|30.00|2026-01-05|0||", domain.QRPayload("20000000001", doc))
}
