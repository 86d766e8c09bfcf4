package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fiscaldoc/internal/domain"
)

// Directory serves customers and products from the local catalogue tables.
// It implements port.CustomerLookup and port.ProductLookup.
type Directory struct {
	db *sqlx.DB
}

// NewDirectory creates a new PostgreSQL-backed Directory.
func NewDirectory(db *sqlx.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var c domain.Customer
	err := d.db.GetContext(ctx, &c,
		`SELECT id, name, identity_type, identity_number, email, is_active, is_blocked, block_reason, requires_invoice
		FROM customers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("directory.GetCustomer: %w", err)
	}
	return &c, nil
}

func (d *Directory) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := d.db.GetContext(ctx, &p,
		`SELECT id, code, description, unit, affectation, is_active, is_sellable, discount_allowed, max_discount_percent
		FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("directory.GetProduct: %w", err)
	}
	return &p, nil
}
