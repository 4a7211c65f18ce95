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

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, company_id, customer_id, establishment, emission_point, sequential, issue_date,
	payment_terms, payment_method, credit_days, upfront_amount, subtotal, tax_total, total, status,
	stock_released, created_by, created_at, updated_at`

const invoiceDetailColumns = `id, invoice_id, line_number, product_id, product_code, description, quantity,
	unit_price, tax_rate, subtotal, tax_amount, returned_quantity`

// Create persiste la cabecera de la factura. El número (est-pe-secuencial) es único.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.CustomerID, inv.Establishment, inv.EmissionPoint, inv.Sequential, inv.IssueDate,
		inv.PaymentTerms, inv.PaymentMethod, inv.CreditDays, inv.UpfrontAmount, inv.Subtotal, inv.TaxTotal, inv.Total,
		inv.Status, inv.StockReleased, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert invoice", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *InvoiceRepo) CreateDetail(ctx context.Context, d *entity.InvoiceDetail) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `INSERT INTO invoice_details (` + invoiceDetailColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.InvoiceID, d.LineNumber, d.ProductID, d.ProductCode, d.Description, d.Quantity,
		d.UnitPrice, d.TaxRate, d.Subtotal, d.TaxAmount, d.ReturnedQuantity,
	)
	if err != nil {
		return writeErr("insert invoice detail", err)
	}
	return nil
}

// Update persiste estado y banderas de la cabecera; el resto es inmutable tras la creación.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	tag, err := r.q.Exec(ctx, `UPDATE invoices SET status = $2, stock_released = $3, updated_at = $4 WHERE id = $1`,
		inv.ID, inv.Status, inv.StockReleased, inv.UpdatedAt)
	return expectOne("update invoice", tag, err)
}

// GetByID retorna nil, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera; quien la toma primero decide la transición.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *InvoiceRepo) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	rows, err := r.q.Query(ctx, `SELECT `+invoiceDetailColumns+` FROM invoice_details
		WHERE invoice_id = $1 ORDER BY line_number`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	out, err := collect(rows, scanInvoiceDetail)
	if err != nil {
		return nil, fmt.Errorf("scan invoice details: %w", err)
	}
	return out, nil
}

func (r *InvoiceRepo) GetDetailByID(ctx context.Context, id string) (*entity.InvoiceDetail, error) {
	d, err := scanInvoiceDetail(r.q.QueryRow(ctx, `SELECT `+invoiceDetailColumns+` FROM invoice_details WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice detail: %w", err)
	}
	return d, nil
}

// UpdateDetailReturned el CHECK returned_quantity <= quantity se traduce en ErrConflict.
func (r *InvoiceRepo) UpdateDetailReturned(ctx context.Context, detailID string, returned decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE invoice_details SET returned_quantity = $2 WHERE id = $1`, detailID, returned)
	return expectOne("update returned quantity", tag, err)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Establishment, &inv.EmissionPoint, &inv.Sequential, &inv.IssueDate,
		&inv.PaymentTerms, &inv.PaymentMethod, &inv.CreditDays, &inv.UpfrontAmount, &inv.Subtotal, &inv.TaxTotal, &inv.Total,
		&inv.Status, &inv.StockReleased, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

func scanInvoiceDetail(row pgx.Row) (*entity.InvoiceDetail, error) {
	var d entity.InvoiceDetail
	err := row.Scan(&d.ID, &d.InvoiceID, &d.LineNumber, &d.ProductID, &d.ProductCode, &d.Description, &d.Quantity,
		&d.UnitPrice, &d.TaxRate, &d.Subtotal, &d.TaxAmount, &d.ReturnedQuantity)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
