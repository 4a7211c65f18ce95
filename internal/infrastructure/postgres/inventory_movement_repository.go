package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo kardex de salidas y reingresos.
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

const movementColumns = `id, product_id, lot_id, line_id, document_id, type, quantity, created_at`

// Create inserta un movimiento. lot_id es NULL para productos sin lotes.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO inventory_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ProductID, nullIfEmpty(m.LotID), m.LineID, m.DocumentID, m.Type, m.Quantity, m.CreatedAt)
	if err != nil {
		return writeErr("insert inventory movement", err)
	}
	return nil
}

func (r *InventoryMovementRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM inventory_movements
		WHERE document_id = $1 ORDER BY created_at, id`, documentID)
}

func (r *InventoryMovementRepo) ListByLine(ctx context.Context, lineID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM inventory_movements
		WHERE line_id = $1 ORDER BY created_at, id`, lineID)
}

func (r *InventoryMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory movements: %w", err)
	}
	out, err := collect(rows, func(row pgx.Row) (*entity.InventoryMovement, error) {
		var m entity.InventoryMovement
		var lotID *string
		if err := row.Scan(&m.ID, &m.ProductID, &lotID, &m.LineID, &m.DocumentID, &m.Type, &m.Quantity, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.LotID = stringOrEmpty(lotID)
		return &m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan inventory movements: %w", err)
	}
	return out, nil
}
