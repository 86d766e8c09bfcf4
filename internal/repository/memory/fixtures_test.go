package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/repository/memory"
)

const fixtureYAML = `
customers:
  - id: 6f1c2b9e-5a0e-4a63-9d0e-6f7a1f6c2a01
    name: ACME SAC
    identity_type: "6"
    identity_number: "20512345678"
    email: billing@acme.example
    requires_invoice: true
  - id: 6f1c2b9e-5a0e-4a63-9d0e-6f7a1f6c2a02
    name: Blocked Ltd
    identity_type: "1"
    identity_number: "12345678"
    blocked: true
    block_reason: unpaid balance
products:
  - id: 0b8f6c1e-3d4a-4c9b-8e2f-1a2b3c4d5e01
    code: W-1
    description: Widget
    discount_allowed: true
    max_discount_percent: "15"
  - id: 0b8f6c1e-3d4a-4c9b-8e2f-1a2b3c4d5e02
    code: EXP-1
    description: Export service
    unit: ZZ
    affectation: "40"
`

func TestDirectory_LoadYAML(t *testing.T) {
	dir := memory.NewDirectory()
	customers, products, err := dir.LoadYAML(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, customers)
	assert.Equal(t, 2, products)

	ctx := context.Background()
	acme, err := dir.GetCustomer(ctx, uuid.MustParse("6f1c2b9e-5a0e-4a63-9d0e-6f7a1f6c2a01"))
	require.NoError(t, err)
	assert.Equal(t, domain.IdentityRUC, acme.IdentityType)
	assert.True(t, acme.IsActive)
	assert.True(t, acme.RequiresInvoice)

	blocked, err := dir.GetCustomer(ctx, uuid.MustParse("6f1c2b9e-5a0e-4a63-9d0e-6f7a1f6c2a02"))
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)

	widget, err := dir.GetProduct(ctx, uuid.MustParse("0b8f6c1e-3d4a-4c9b-8e2f-1a2b3c4d5e01"))
	require.NoError(t, err)
	assert.Equal(t, "NIU", widget.Unit)
	assert.Equal(t, domain.AffectationTaxable, widget.Affectation)
	assert.Equal(t, "15", widget.MaxDiscountPercent.String())
	assert.True(t, widget.IsSellable)

	export, err := dir.GetProduct(ctx, uuid.MustParse("0b8f6c1e-3d4a-4c9b-8e2f-1a2b3c4d5e02"))
	require.NoError(t, err)
	assert.Equal(t, domain.AffectationExport, export.Affectation)
}

func TestDirectory_LoadYAML_MissingID(t *testing.T) {
	dir := memory.NewDirectory()
	_, _, err := dir.LoadYAML(strings.NewReader("customers:\n  - name: nobody\n"))
	assert.Error(t, err)
}
