package memory

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"fiscaldoc/internal/domain"
)

type fixtureFile struct {
	Customers []customerFixture `yaml:"customers"`
	Products  []productFixture  `yaml:"products"`
}

type customerFixture struct {
	ID              uuid.UUID `yaml:"id"`
	Name            string    `yaml:"name"`
	IdentityType    string    `yaml:"identity_type"`
	IdentityNumber  string    `yaml:"identity_number"`
	Email           string    `yaml:"email"`
	Blocked         bool      `yaml:"blocked"`
	BlockReason     string    `yaml:"block_reason"`
	RequiresInvoice bool      `yaml:"requires_invoice"`
	Inactive        bool      `yaml:"inactive"`
}

type productFixture struct {
	ID                 uuid.UUID        `yaml:"id"`
	Code               string           `yaml:"code"`
	Description        string           `yaml:"description"`
	Unit               string           `yaml:"unit"`
	Affectation        string           `yaml:"affectation"`
	DiscountAllowed    bool             `yaml:"discount_allowed"`
	MaxDiscountPercent *decimal.Decimal `yaml:"max_discount_percent"`
	NotSellable        bool             `yaml:"not_sellable"`
	Inactive           bool             `yaml:"inactive"`
}

// LoadYAML adds the customers and products listed in r. Entries without an
// id are skipped with an error.
func (d *Directory) LoadYAML(r io.Reader) (customers, products int, err error) {
	var f fixtureFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return 0, 0, fmt.Errorf("decoding fixtures: %w", err)
	}
	for i, c := range f.Customers {
		if c.ID == uuid.Nil {
			return customers, products, fmt.Errorf("customers[%d]: id is required", i)
		}
		d.PutCustomer(domain.Customer{
			ID:              c.ID,
			Name:            c.Name,
			IdentityType:    domain.IdentityType(c.IdentityType),
			IdentityNumber:  c.IdentityNumber,
			Email:           c.Email,
			IsActive:        !c.Inactive,
			IsBlocked:       c.Blocked,
			BlockReason:     c.BlockReason,
			RequiresInvoice: c.RequiresInvoice,
		})
		customers++
	}
	for i, p := range f.Products {
		if p.ID == uuid.Nil {
			return customers, products, fmt.Errorf("products[%d]: id is required", i)
		}
		maxDiscount := decimal.NewFromInt(100)
		if p.MaxDiscountPercent != nil {
			maxDiscount = *p.MaxDiscountPercent
		}
		affectation := domain.Affectation(p.Affectation)
		if affectation == "" {
			affectation = domain.AffectationTaxable
		}
		unit := p.Unit
		if unit == "" {
			unit = "NIU"
		}
		d.PutProduct(domain.Product{
			ID:                 p.ID,
			Code:               p.Code,
			Description:        p.Description,
			Unit:               unit,
			Affectation:        affectation,
			IsActive:           !p.Inactive,
			IsSellable:         !p.NotSellable,
			DiscountAllowed:    p.DiscountAllowed,
			MaxDiscountPercent: maxDiscount,
		})
		products++
	}
	return customers, products, nil
}
