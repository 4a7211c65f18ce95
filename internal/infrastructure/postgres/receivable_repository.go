package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.ReceivableRepository = (*ReceivableRepo)(nil)

// ReceivableRepo cuentas por cobrar (una por factura) y sus pagos.
type ReceivableRepo struct {
	q Querier
}

func NewReceivableRepository(q Querier) *ReceivableRepo {
	return &ReceivableRepo{q: q}
}

const receivableColumns = `id, company_id, invoice_id, customer_id, total, outstanding, due_date, status, created_at, updated_at`

// Create el UNIQUE(invoice_id) convierte una segunda generación en ErrDuplicate.
func (r *ReceivableRepo) Create(ctx context.Context, ar *entity.AccountsReceivable) error {
	if ar.ID == "" {
		ar.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO accounts_receivable (`+receivableColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ar.ID, ar.CompanyID, ar.InvoiceID, ar.CustomerID, ar.Total, ar.Outstanding, ar.DueDate, ar.Status,
		ar.CreatedAt, ar.UpdatedAt)
	if err != nil {
		return writeErr("insert receivable", err)
	}
	return nil
}

func (r *ReceivableRepo) Update(ctx context.Context, ar *entity.AccountsReceivable) error {
	tag, err := r.q.Exec(ctx, `UPDATE accounts_receivable SET outstanding = $2, status = $3, updated_at = $4 WHERE id = $1`,
		ar.ID, ar.Outstanding, ar.Status, ar.UpdatedAt)
	return expectOne("update receivable", tag, err)
}

func (r *ReceivableRepo) GetByID(ctx context.Context, id string) (*entity.AccountsReceivable, error) {
	return r.getOne(ctx, `SELECT `+receivableColumns+` FROM accounts_receivable WHERE id = $1`, id)
}

func (r *ReceivableRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.AccountsReceivable, error) {
	return r.getOne(ctx, `SELECT `+receivableColumns+` FROM accounts_receivable WHERE invoice_id = $1`, invoiceID)
}

func (r *ReceivableRepo) CreatePayment(ctx context.Context, p *entity.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO payments (id, invoice_id, receivable_id, amount, method, automatic, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.InvoiceID, p.ReceivableID, p.Amount, p.Method, p.Automatic, p.PaidAt, p.CreatedAt)
	if err != nil {
		return writeErr("insert payment", err)
	}
	return nil
}

func (r *ReceivableRepo) ListPayments(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx, `SELECT id, invoice_id, receivable_id, amount, method, automatic, paid_at, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out, err := collect(rows, func(row pgx.Row) (*entity.Payment, error) {
		var p entity.Payment
		if err := row.Scan(&p.ID, &p.InvoiceID, &p.ReceivableID, &p.Amount, &p.Method, &p.Automatic, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan payments: %w", err)
	}
	return out, nil
}

func (r *ReceivableRepo) getOne(ctx context.Context, query string, args ...any) (*entity.AccountsReceivable, error) {
	var ar entity.AccountsReceivable
	err := r.q.QueryRow(ctx, query, args...).Scan(&ar.ID, &ar.CompanyID, &ar.InvoiceID, &ar.CustomerID,
		&ar.Total, &ar.Outstanding, &ar.DueDate, &ar.Status, &ar.CreatedAt, &ar.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receivable: %w", err)
	}
	return &ar, nil
}
