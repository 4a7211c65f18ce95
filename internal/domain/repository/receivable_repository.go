package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// ReceivableRepository cuentas por cobrar y pagos.
type ReceivableRepository interface {
	Create(ctx context.Context, r *entity.AccountsReceivable) error
	Update(ctx context.Context, r *entity.AccountsReceivable) error
	GetByID(ctx context.Context, id string) (*entity.AccountsReceivable, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.AccountsReceivable, error)
	CreatePayment(ctx context.Context, p *entity.Payment) error
	ListPayments(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
}
