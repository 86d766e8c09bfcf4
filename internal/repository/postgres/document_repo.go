package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

const documentColumns = `id, document_type, series_code, number, currency, exchange_rate, price_includes_tax,
	issue_date, due_date, customer_id, customer_snapshot,
	subtotal, discount_total, taxable_base, tax_total, exempt_total, not_taxed_total, export_total, free_total, grand_total,
	state, original_id, reason_code, reason, authority, void_reason, notes,
	emitted_at, submitted_at, resolved_at, voided_at, submission_refused_at, created_at, updated_at`

type documentRow struct {
	ID               uuid.UUID       `db:"id"`
	DocumentType     string          `db:"document_type"`
	SeriesCode       string          `db:"series_code"`
	Number           *int64          `db:"number"`
	Currency         string          `db:"currency"`
	ExchangeRate     decimal.Decimal `db:"exchange_rate"`
	PriceIncludesTax bool            `db:"price_includes_tax"`
	IssueDate        time.Time       `db:"issue_date"`
	DueDate          *time.Time      `db:"due_date"`
	CustomerID       uuid.UUID       `db:"customer_id"`
	CustomerSnapshot []byte          `db:"customer_snapshot"`
	Subtotal         decimal.Decimal `db:"subtotal"`
	DiscountTotal    decimal.Decimal `db:"discount_total"`
	TaxableBase      decimal.Decimal `db:"taxable_base"`
	TaxTotal         decimal.Decimal `db:"tax_total"`
	ExemptTotal      decimal.Decimal `db:"exempt_total"`
	NotTaxedTotal    decimal.Decimal `db:"not_taxed_total"`
	ExportTotal      decimal.Decimal `db:"export_total"`
	FreeTotal        decimal.Decimal `db:"free_total"`
	GrandTotal       decimal.Decimal `db:"grand_total"`
	State            string          `db:"state"`
	OriginalID       *uuid.UUID      `db:"original_id"`
	ReasonCode       string          `db:"reason_code"`
	Reason           string          `db:"reason"`
	Authority        []byte          `db:"authority"`
	VoidReason       string          `db:"void_reason"`
	Notes            string          `db:"notes"`
	EmittedAt        *time.Time      `db:"emitted_at"`
	SubmittedAt      *time.Time      `db:"submitted_at"`
	ResolvedAt       *time.Time      `db:"resolved_at"`
	VoidedAt         *time.Time      `db:"voided_at"`
	RefusedAt        *time.Time      `db:"submission_refused_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

type lineRow struct {
	DocumentID      uuid.UUID       `db:"document_id"`
	Position        int             `db:"position"`
	ProductID       *uuid.UUID      `db:"product_id"`
	ProductCode     string          `db:"product_code"`
	Description     string          `db:"description"`
	Unit            string          `db:"unit"`
	Quantity        decimal.Decimal `db:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	Affectation     string          `db:"affectation"`
	FreeOfCharge    bool            `db:"free_of_charge"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	DiscountAmount  decimal.Decimal `db:"discount_amount"`
	Base            decimal.Decimal `db:"base"`
	Tax             decimal.Decimal `db:"tax"`
	Total           decimal.Decimal `db:"total"`
	ReferenceValue  decimal.Decimal `db:"reference_value"`
}

const insertLineQuery = `INSERT INTO document_lines (
		document_id, position, product_id, product_code, description, unit,
		quantity, unit_price, discount_percent, affectation, free_of_charge,
		subtotal, discount_amount, base, tax, total, reference_value
	) VALUES (
		:document_id, :position, :product_id, :product_code, :description, :unit,
		:quantity, :unit_price, :discount_percent, :affectation, :free_of_charge,
		:subtotal, :discount_amount, :base, :tax, :total, :reference_value
	)`

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
// Documents and their lines are written in one transaction.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.FiscalDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	row, err := toDocumentRow(doc)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}

	query := `INSERT INTO fiscal_documents (` + documentColumns + `) VALUES (
		:id, :document_type, :series_code, :number, :currency, :exchange_rate, :price_includes_tax,
		:issue_date, :due_date, :customer_id, :customer_snapshot,
		:subtotal, :discount_total, :taxable_base, :tax_total, :exempt_total, :not_taxed_total, :export_total, :free_total, :grand_total,
		:state, :original_id, :reason_code, :reason, :authority, :void_reason, :notes,
		:emitted_at, :submitted_at, :resolved_at, :voided_at, :submission_refused_at, :created_at, :updated_at
	)`

	err = txFunc(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return err
		}
		return insertLines(ctx, tx, doc.ID, doc.Lines)
	})
	if err != nil {
		if isUniqueViolation(err, "fiscal_documents_pkey") {
			return fmt.Errorf("documentRepo.Create: duplicate id %s", doc.ID)
		}
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	var row documentRow
	err := r.db.GetContext(ctx, &row, "SELECT "+documentColumns+" FROM fiscal_documents WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}

	docs, err := r.hydrate(ctx, []documentRow{row})
	if err != nil {
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &docs[0], nil
}

func (r *documentRepo) List(ctx context.Context, f port.DocumentFilter, offset, limit int) ([]domain.FiscalDocument, int, error) {
	where, args := documentFilterClause(f)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM fiscal_documents"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List count: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT %s FROM fiscal_documents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		documentColumns, where, len(args)-1, len(args))
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
	}

	docs, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
	}
	return docs, total, nil
}

func documentFilterClause(f port.DocumentFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add("document_type = $%d", string(f.Type))
	}
	if f.State != "" {
		add("state = $%d", string(f.State))
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if f.SeriesCode != "" {
		add("series_code = $%d", f.SeriesCode)
	}
	if f.IssuedFrom != nil {
		add("issue_date >= $%d", *f.IssuedFrom)
	}
	if f.IssuedTo != nil {
		add("issue_date <= $%d", *f.IssuedTo)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *documentRepo) ListPendingSubmission(ctx context.Context, refusedBefore time.Time, limit int) ([]domain.FiscalDocument, error) {
	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+documentColumns+` FROM fiscal_documents
		WHERE state = $1 AND (submission_refused_at IS NULL OR submission_refused_at < $2)
		ORDER BY created_at ASC LIMIT $3`,
		string(domain.StateEmitted), refusedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListPendingSubmission: %w", err)
	}
	docs, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListPendingSubmission: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) UpdateDraft(ctx context.Context, doc *domain.FiscalDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	row, err := toDocumentRow(doc)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateDraft: %w", err)
	}

	query := `UPDATE fiscal_documents SET
		series_code = :series_code, currency = :currency, exchange_rate = :exchange_rate,
		price_includes_tax = :price_includes_tax, issue_date = :issue_date, due_date = :due_date,
		customer_id = :customer_id, notes = :notes,
		subtotal = :subtotal, discount_total = :discount_total, taxable_base = :taxable_base,
		tax_total = :tax_total, exempt_total = :exempt_total, not_taxed_total = :not_taxed_total,
		export_total = :export_total, free_total = :free_total, grand_total = :grand_total,
		updated_at = :updated_at
		WHERE id = :id AND state = 'draft'`

	return txFunc(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx, query, row)
		if err != nil {
			return fmt.Errorf("documentRepo.UpdateDraft: %w", err)
		}
		rows, err := rowsAffected(result, "documentRepo.UpdateDraft")
		if err != nil {
			return err
		}
		if rows == 0 {
			return r.frozenOrMissing(ctx, tx, doc.ID)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_lines WHERE document_id = $1", doc.ID); err != nil {
			return fmt.Errorf("documentRepo.UpdateDraft lines: %w", err)
		}
		if err := insertLines(ctx, tx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("documentRepo.UpdateDraft lines: %w", err)
		}
		return nil
	})
}

func (r *documentRepo) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	return txFunc(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_corrections WHERE note_id = $1", id); err != nil {
			return fmt.Errorf("documentRepo.DeleteDraft: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM fiscal_documents WHERE id = $1 AND state = 'draft'", id)
		if err != nil {
			return fmt.Errorf("documentRepo.DeleteDraft: %w", err)
		}
		rows, err := rowsAffected(result, "documentRepo.DeleteDraft")
		if err != nil {
			return err
		}
		if rows == 0 {
			return r.frozenOrMissing(ctx, tx, id)
		}
		return nil
	})
}

func (r *documentRepo) frozenOrMissing(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var state string
	err := tx.GetContext(ctx, &state, "SELECT state FROM fiscal_documents WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("documentRepo: reading state: %w", err)
	}
	return domain.ErrDocumentFrozen
}

func (r *documentRepo) MarkEmitted(ctx context.Context, doc *domain.FiscalDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	row, err := toDocumentRow(doc)
	if err != nil {
		return fmt.Errorf("documentRepo.MarkEmitted: %w", err)
	}

	query := `UPDATE fiscal_documents SET
		number = :number, customer_snapshot = :customer_snapshot, state = :state,
		issue_date = :issue_date, emitted_at = :emitted_at,
		subtotal = :subtotal, discount_total = :discount_total, taxable_base = :taxable_base,
		tax_total = :tax_total, exempt_total = :exempt_total, not_taxed_total = :not_taxed_total,
		export_total = :export_total, free_total = :free_total, grand_total = :grand_total,
		updated_at = :updated_at
		WHERE id = :id AND state = 'draft'`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err, "idx_fiscal_documents_number") {
			return fmt.Errorf("documentRepo.MarkEmitted: number %s already issued: %w",
				domain.FullNumber(doc.SeriesCode, derefNumber(doc.Number)), domain.ErrInvalidTransition)
		}
		return fmt.Errorf("documentRepo.MarkEmitted: %w", err)
	}
	rows, err := rowsAffected(result, "documentRepo.MarkEmitted")
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.stateConflict(ctx, doc.ID, domain.StateEmitted)
	}
	return nil
}

func (r *documentRepo) UpdateLifecycle(ctx context.Context, doc *domain.FiscalDocument, from domain.DocumentState) error {
	doc.UpdatedAt = time.Now().UTC()
	authority, err := marshalNullable(doc.Authority)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateLifecycle: %w", err)
	}

	query := `UPDATE fiscal_documents SET
		state = $1, authority = $2, void_reason = $3,
		submitted_at = $4, resolved_at = $5, voided_at = $6, submission_refused_at = $7, updated_at = $8
		WHERE id = $9 AND state = $10`

	result, err := r.db.ExecContext(ctx, query,
		string(doc.State), authority, doc.VoidReason,
		doc.SubmittedAt, doc.ResolvedAt, doc.VoidedAt, doc.SubmissionRefusedAt, doc.UpdatedAt,
		doc.ID, string(from))
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateLifecycle: %w", err)
	}
	rows, err := rowsAffected(result, "documentRepo.UpdateLifecycle")
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.stateConflict(ctx, doc.ID, doc.State)
	}
	return nil
}

// stateConflict explains a conditional update that matched no row.
func (r *documentRepo) stateConflict(ctx context.Context, id uuid.UUID, to domain.DocumentState) error {
	var state string
	err := r.db.GetContext(ctx, &state, "SELECT state FROM fiscal_documents WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("documentRepo: reading state: %w", err)
	}
	return &domain.StateError{From: domain.DocumentState(state), To: to}
}

func (r *documentRepo) LinkCorrection(ctx context.Context, originalID, noteID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_corrections (original_id, note_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (original_id, note_id) DO NOTHING`,
		originalID, noteID, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("documentRepo.LinkCorrection: %w", err)
	}
	return nil
}

func (r *documentRepo) ListCorrections(ctx context.Context, originalID uuid.UUID) ([]domain.FiscalDocument, error) {
	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+prefixed("d.", documentColumns)+` FROM fiscal_documents d
		JOIN document_corrections c ON c.note_id = d.id
		WHERE c.original_id = $1 ORDER BY c.created_at ASC`, originalID)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListCorrections: %w", err)
	}
	docs, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListCorrections: %w", err)
	}
	return docs, nil
}

// hydrate converts rows to documents and loads their lines in one query.
func (r *documentRepo) hydrate(ctx context.Context, rows []documentRow) ([]domain.FiscalDocument, error) {
	docs := make([]domain.FiscalDocument, len(rows))
	if len(rows) == 0 {
		return docs, nil
	}
	ids := make([]string, len(rows))
	index := make(map[uuid.UUID]int, len(rows))
	for i := range rows {
		doc, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		docs[i] = *doc
		docs[i].Lines = []domain.LineItem{}
		ids[i] = rows[i].ID.String()
		index[rows[i].ID] = i
	}

	var lines []lineRow
	err := r.db.SelectContext(ctx, &lines,
		`SELECT document_id, position, product_id, product_code, description, unit,
			quantity, unit_price, discount_percent, affectation, free_of_charge,
			subtotal, discount_amount, base, tax, total, reference_value
		FROM document_lines WHERE document_id = ANY($1::uuid[]) ORDER BY document_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("loading lines: %w", err)
	}
	for i := range lines {
		j := index[lines[i].DocumentID]
		docs[j].Lines = append(docs[j].Lines, lines[i].toDomain())
	}
	return docs, nil
}

func insertLines(ctx context.Context, tx *sqlx.Tx, docID uuid.UUID, lines []domain.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]lineRow, len(lines))
	for i := range lines {
		rows[i] = toLineRow(docID, &lines[i])
	}
	_, err := tx.NamedExecContext(ctx, insertLineQuery, rows)
	return err
}

func toDocumentRow(d *domain.FiscalDocument) (*documentRow, error) {
	snapshot, err := marshalNullable(d.Customer)
	if err != nil {
		return nil, fmt.Errorf("encoding customer snapshot: %w", err)
	}
	authority, err := marshalNullable(d.Authority)
	if err != nil {
		return nil, fmt.Errorf("encoding authority response: %w", err)
	}
	row := &documentRow{
		ID:               d.ID,
		DocumentType:     string(d.Type),
		SeriesCode:       d.SeriesCode,
		Number:           d.Number,
		Currency:         d.Currency,
		ExchangeRate:     d.ExchangeRate,
		PriceIncludesTax: d.PriceIncludesTax,
		IssueDate:        d.IssueDate,
		DueDate:          d.DueDate,
		CustomerID:       d.CustomerID,
		CustomerSnapshot: snapshot,
		Subtotal:         d.Totals.Subtotal,
		DiscountTotal:    d.Totals.DiscountTotal,
		TaxableBase:      d.Totals.TaxableBase,
		TaxTotal:         d.Totals.TaxTotal,
		ExemptTotal:      d.Totals.ExemptTotal,
		NotTaxedTotal:    d.Totals.NotTaxedTotal,
		ExportTotal:      d.Totals.ExportTotal,
		FreeTotal:        d.Totals.FreeTotal,
		GrandTotal:       d.Totals.GrandTotal,
		State:            string(d.State),
		Authority:        authority,
		VoidReason:       d.VoidReason,
		Notes:            d.Notes,
		EmittedAt:        d.EmittedAt,
		SubmittedAt:      d.SubmittedAt,
		ResolvedAt:       d.ResolvedAt,
		VoidedAt:         d.VoidedAt,
		RefusedAt:        d.SubmissionRefusedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.Correction != nil {
		id := d.Correction.OriginalID
		row.OriginalID = &id
		row.ReasonCode = d.Correction.ReasonCode
		row.Reason = d.Correction.Reason
	}
	return row, nil
}

func (row *documentRow) toDomain() (*domain.FiscalDocument, error) {
	d := &domain.FiscalDocument{
		ID:               row.ID,
		Type:             domain.DocumentType(row.DocumentType),
		SeriesCode:       row.SeriesCode,
		Number:           row.Number,
		Currency:         row.Currency,
		ExchangeRate:     row.ExchangeRate,
		PriceIncludesTax: row.PriceIncludesTax,
		IssueDate:        row.IssueDate.UTC(),
		DueDate:          row.DueDate,
		CustomerID:       row.CustomerID,
		Totals: domain.Totals{
			Subtotal:      row.Subtotal,
			DiscountTotal: row.DiscountTotal,
			TaxableBase:   row.TaxableBase,
			TaxTotal:      row.TaxTotal,
			ExemptTotal:   row.ExemptTotal,
			NotTaxedTotal: row.NotTaxedTotal,
			ExportTotal:   row.ExportTotal,
			FreeTotal:     row.FreeTotal,
			GrandTotal:    row.GrandTotal,
		},
		State:       domain.DocumentState(row.State),
		VoidReason:  row.VoidReason,
		Notes:       row.Notes,
		EmittedAt:   row.EmittedAt,
		SubmittedAt: row.SubmittedAt,
		ResolvedAt:  row.ResolvedAt,
		VoidedAt:    row.VoidedAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	d.SubmissionRefusedAt = row.RefusedAt
	if row.OriginalID != nil {
		d.Correction = &domain.CorrectionRef{OriginalID: *row.OriginalID, ReasonCode: row.ReasonCode, Reason: row.Reason}
	}
	if len(row.CustomerSnapshot) > 0 {
		d.Customer = &domain.CustomerSnapshot{}
		if err := json.Unmarshal(row.CustomerSnapshot, d.Customer); err != nil {
			return nil, fmt.Errorf("decoding customer snapshot of %s: %w", row.ID, err)
		}
	}
	if len(row.Authority) > 0 {
		d.Authority = &domain.AuthorityResponse{}
		if err := json.Unmarshal(row.Authority, d.Authority); err != nil {
			return nil, fmt.Errorf("decoding authority response of %s: %w", row.ID, err)
		}
	}
	return d, nil
}

func toLineRow(docID uuid.UUID, l *domain.LineItem) lineRow {
	return lineRow{
		DocumentID:      docID,
		Position:        l.Position,
		ProductID:       l.ProductID,
		ProductCode:     l.ProductCode,
		Description:     l.Description,
		Unit:            l.Unit,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		Affectation:     string(l.Affectation),
		FreeOfCharge:    l.FreeOfCharge,
		Subtotal:        l.Subtotal,
		DiscountAmount:  l.DiscountAmount,
		Base:            l.Base,
		Tax:             l.Tax,
		Total:           l.Total,
		ReferenceValue:  l.ReferenceValue,
	}
}

func (row *lineRow) toDomain() domain.LineItem {
	return domain.LineItem{
		Position:        row.Position,
		ProductID:       row.ProductID,
		ProductCode:     row.ProductCode,
		Description:     row.Description,
		Unit:            row.Unit,
		Quantity:        row.Quantity,
		UnitPrice:       row.UnitPrice,
		DiscountPercent: row.DiscountPercent,
		Affectation:     domain.Affectation(row.Affectation),
		FreeOfCharge:    row.FreeOfCharge,
		Subtotal:        row.Subtotal,
		DiscountAmount:  row.DiscountAmount,
		Base:            row.Base,
		Tax:             row.Tax,
		Total:           row.Total,
		ReferenceValue:  row.ReferenceValue,
	}
}

// marshalNullable encodes v as JSON, or returns nil for a nil pointer so the
// column stays NULL.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func derefNumber(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
