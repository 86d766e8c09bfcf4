package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

type paymentRepo struct {
	db *sqlx.DB
}

// NewPaymentRepo creates a new PostgreSQL-backed PaymentRepository.
func NewPaymentRepo(db *sqlx.DB) port.PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()

	query := `INSERT INTO payments (
		id, document_id, amount, currency, exchange_rate, applied_amount, method, paid_on, reference, created_at
	) VALUES (
		:id, :document_id, :amount, :currency, :exchange_rate, :applied_amount, :method, :paid_on, :reference, :created_at
	)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("paymentRepo.Create: %w", err)
	}
	return nil
}

func (r *paymentRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Payment, error) {
	payments := []domain.Payment{}
	err := r.db.SelectContext(ctx, &payments,
		`SELECT id, document_id, amount, currency, exchange_rate, applied_amount, method, paid_on, reference, created_at
		FROM payments WHERE document_id = $1 ORDER BY created_at ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.ListByDocument: %w", err)
	}
	return payments, nil
}
