package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type paymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID][]domain.Payment
}

// NewPaymentRepo creates an in-memory PaymentRepository.
func NewPaymentRepo() port.PaymentRepository {
	return &paymentRepo{payments: make(map[uuid.UUID][]domain.Payment)}
}

func (r *paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	r.payments[p.DocumentID] = append(r.payments[p.DocumentID], *p)
	return nil
}

func (r *paymentRepo) ListByDocument(_ context.Context, documentID uuid.UUID) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Payment{}, r.payments[documentID]...), nil
}
