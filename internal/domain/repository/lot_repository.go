package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LotRepository define el puerto de persistencia para lotes de inventario.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.InventoryLot) error
	GetByID(ctx context.Context, id string) (*entity.InventoryLot, error)
	// ListAvailableForUpdate lotes con disponible > 0 ordenados por fecha de compra ascendente (FIFO), bloqueados.
	ListAvailableForUpdate(ctx context.Context, productID string) ([]*entity.InventoryLot, error)
	// ListByIDsForUpdate bloquea los lotes indicados; el orden de salida no está garantizado.
	ListByIDsForUpdate(ctx context.Context, ids []string) ([]*entity.InventoryLot, error)
	UpdateAvailable(ctx context.Context, id string, available decimal.Decimal) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.InventoryLot, error)
}

// LotConsumptionRepository vínculos línea de factura -> lote.
type LotConsumptionRepository interface {
	Create(ctx context.Context, c *entity.LotConsumption) error
	ListByInvoiceDetail(ctx context.Context, invoiceDetailID string) ([]*entity.LotConsumption, error)
}
