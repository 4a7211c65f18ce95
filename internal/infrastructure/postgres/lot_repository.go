package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.LotRepository            = (*LotRepo)(nil)
	_ repository.LotConsumptionRepository = (*LotConsumptionRepo)(nil)
)

// LotRepo lotes de compra con cantidad disponible.
type LotRepo struct {
	q Querier
}

func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, product_id, lot_number, purchased, available, purchase_date, expiry_date, created_at, updated_at`

func (r *LotRepo) Create(ctx context.Context, l *entity.InventoryLot) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	query := `INSERT INTO inventory_lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.ProductID, l.LotNumber, l.Purchased, l.Available, l.PurchaseDate, l.ExpiryDate,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert lot", err)
	}
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.InventoryLot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM inventory_lots WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

// ListAvailableForUpdate FIFO por fecha de compra; el id desempata compras del mismo instante.
func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, productID string) ([]*entity.InventoryLot, error) {
	return r.list(ctx, `SELECT `+lotColumns+` FROM inventory_lots
		WHERE product_id = $1 AND available > 0
		ORDER BY purchase_date, created_at, id
		FOR UPDATE`, productID)
}

// ListByIDsForUpdate bloquea en orden de id para que dos transacciones no se crucen.
func (r *LotRepo) ListByIDsForUpdate(ctx context.Context, ids []string) ([]*entity.InventoryLot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+lotColumns+` FROM inventory_lots
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
}

// UpdateAvailable el CHECK 0 <= available <= purchased se traduce en ErrConflict.
func (r *LotRepo) UpdateAvailable(ctx context.Context, id string, available decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE inventory_lots SET available = $2, updated_at = $3 WHERE id = $1`,
		id, available, time.Now().UTC())
	return expectOne("update lot available", tag, err)
}

func (r *LotRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.InventoryLot, error) {
	return r.list(ctx, `SELECT `+lotColumns+` FROM inventory_lots
		WHERE product_id = $1
		ORDER BY purchase_date, created_at, id`, productID)
}

func (r *LotRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryLot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	lots, err := collect(rows, scanLot)
	if err != nil {
		return nil, fmt.Errorf("scan lots: %w", err)
	}
	return lots, nil
}

func scanLot(row pgx.Row) (*entity.InventoryLot, error) {
	var l entity.InventoryLot
	err := row.Scan(&l.ID, &l.ProductID, &l.LotNumber, &l.Purchased, &l.Available, &l.PurchaseDate,
		&l.ExpiryDate, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LotConsumptionRepo registra qué lotes cubrió cada línea de factura.
type LotConsumptionRepo struct {
	q Querier
}

func NewLotConsumptionRepository(q Querier) *LotConsumptionRepo {
	return &LotConsumptionRepo{q: q}
}

func (r *LotConsumptionRepo) Create(ctx context.Context, c *entity.LotConsumption) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO lot_consumptions (id, invoice_detail_id, lot_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)`, c.ID, c.InvoiceDetailID, c.LotID, c.Quantity, c.CreatedAt)
	if err != nil {
		return writeErr("insert lot consumption", err)
	}
	return nil
}

// ListByInvoiceDetail en orden de consumo (FIFO original).
func (r *LotConsumptionRepo) ListByInvoiceDetail(ctx context.Context, invoiceDetailID string) ([]*entity.LotConsumption, error) {
	rows, err := r.q.Query(ctx, `SELECT id, invoice_detail_id, lot_id, quantity, created_at
		FROM lot_consumptions WHERE invoice_detail_id = $1 ORDER BY created_at, id`, invoiceDetailID)
	if err != nil {
		return nil, fmt.Errorf("list lot consumptions: %w", err)
	}
	out, err := collect(rows, func(row pgx.Row) (*entity.LotConsumption, error) {
		var c entity.LotConsumption
		if err := row.Scan(&c.ID, &c.InvoiceDetailID, &c.LotID, &c.Quantity, &c.CreatedAt); err != nil {
			return nil, err
		}
		return &c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan lot consumptions: %w", err)
	}
	return out, nil
}
