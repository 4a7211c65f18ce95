package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InvoiceRepository define el puerto de persistencia para Invoice y detalles.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error
	// Update persiste estado y banderas de la cabecera.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetForUpdate lee la fila confirmada y la bloquea; se usa para validar reglas de negocio.
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)
	GetDetailByID(ctx context.Context, id string) (*entity.InvoiceDetail, error)
	UpdateDetailReturned(ctx context.Context, detailID string, returned decimal.Decimal) error
}
