package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
)

// Directory is an in-memory customer and product catalogue.
type Directory struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]domain.Customer
	products  map[uuid.UUID]domain.Product
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		customers: make(map[uuid.UUID]domain.Customer),
		products:  make(map[uuid.UUID]domain.Product),
	}
}

// PutCustomer adds or replaces a customer.
func (d *Directory) PutCustomer(c domain.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.ID] = c
}

// PutProduct adds or replaces a product.
func (d *Directory) PutProduct(p domain.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.products[p.ID] = p
}

func (d *Directory) GetCustomer(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (d *Directory) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}
