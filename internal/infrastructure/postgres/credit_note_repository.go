package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

// CreditNoteRepo notas de crédito y sus líneas.
type CreditNoteRepo struct {
	q Querier
}

func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

const creditNoteColumns = `id, company_id, invoice_id, customer_id, establishment, emission_point, sequential,
	issue_date, reason, subtotal, tax_total, total, status, created_by, created_at, updated_at`

const creditNoteDetailColumns = `id, credit_note_id, invoice_detail_id, line_number, product_id, product_code,
	description, quantity, unit_price, tax_rate, subtotal, tax_amount`

func (r *CreditNoteRepo) Create(ctx context.Context, n *entity.CreditNote) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `INSERT INTO credit_notes (` + creditNoteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		n.ID, n.CompanyID, n.InvoiceID, n.CustomerID, n.Establishment, n.EmissionPoint, n.Sequential,
		n.IssueDate, n.Reason, n.Subtotal, n.TaxTotal, n.Total, n.Status, n.CreatedBy, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert credit note", err)
	}
	return nil
}

func (r *CreditNoteRepo) CreateDetail(ctx context.Context, d *entity.CreditNoteDetail) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `INSERT INTO credit_note_details (` + creditNoteDetailColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.CreditNoteID, d.InvoiceDetailID, d.LineNumber, d.ProductID, d.ProductCode,
		d.Description, d.Quantity, d.UnitPrice, d.TaxRate, d.Subtotal, d.TaxAmount,
	)
	if err != nil {
		return writeErr("insert credit note detail", err)
	}
	return nil
}

func (r *CreditNoteRepo) Update(ctx context.Context, n *entity.CreditNote) error {
	tag, err := r.q.Exec(ctx, `UPDATE credit_notes SET status = $2, updated_at = $3 WHERE id = $1`,
		n.ID, n.Status, n.UpdatedAt)
	return expectOne("update credit note", tag, err)
}

func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.getOne(ctx, `SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = $1`, id)
}

func (r *CreditNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.getOne(ctx, `SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = $1 FOR UPDATE`, id)
}

func (r *CreditNoteRepo) GetDetailsByCreditNoteID(ctx context.Context, creditNoteID string) ([]*entity.CreditNoteDetail, error) {
	rows, err := r.q.Query(ctx, `SELECT `+creditNoteDetailColumns+` FROM credit_note_details
		WHERE credit_note_id = $1 ORDER BY line_number`, creditNoteID)
	if err != nil {
		return nil, fmt.Errorf("list credit note details: %w", err)
	}
	out, err := collect(rows, func(row pgx.Row) (*entity.CreditNoteDetail, error) {
		var d entity.CreditNoteDetail
		err := row.Scan(&d.ID, &d.CreditNoteID, &d.InvoiceDetailID, &d.LineNumber, &d.ProductID, &d.ProductCode,
			&d.Description, &d.Quantity, &d.UnitPrice, &d.TaxRate, &d.Subtotal, &d.TaxAmount)
		if err != nil {
			return nil, err
		}
		return &d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan credit note details: %w", err)
	}
	return out, nil
}

// SumOpenReturns suma lo reservado por notas aún no resueltas (DRAFT, PENDING, SENT).
func (r *CreditNoteRepo) SumOpenReturns(ctx context.Context, invoiceDetailID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(d.quantity), 0)
		FROM credit_note_details d
		JOIN credit_notes n ON n.id = d.credit_note_id
		WHERE d.invoice_detail_id = $1 AND n.status = ANY($2)`,
		invoiceDetailID, []string{entity.DocumentStatusDraft, entity.DocumentStatusPending, entity.DocumentStatusSent},
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum open returns: %w", err)
	}
	return sum, nil
}

func (r *CreditNoteRepo) getOne(ctx context.Context, query string, args ...any) (*entity.CreditNote, error) {
	var n entity.CreditNote
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&n.ID, &n.CompanyID, &n.InvoiceID, &n.CustomerID, &n.Establishment, &n.EmissionPoint, &n.Sequential,
		&n.IssueDate, &n.Reason, &n.Subtotal, &n.TaxTotal, &n.Total, &n.Status, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credit note: %w", err)
	}
	return &n, nil
}
