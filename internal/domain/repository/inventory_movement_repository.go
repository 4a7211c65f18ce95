package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de persistencia para el kardex.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.InventoryMovement, error)
	ListByLine(ctx context.Context, lineID string) ([]*entity.InventoryMovement, error)
}
