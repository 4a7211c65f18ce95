package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreditNoteRepository define el puerto de persistencia para notas de crédito.
type CreditNoteRepository interface {
	Create(ctx context.Context, note *entity.CreditNote) error
	CreateDetail(ctx context.Context, detail *entity.CreditNoteDetail) error
	Update(ctx context.Context, note *entity.CreditNote) error
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error)
	GetDetailsByCreditNoteID(ctx context.Context, creditNoteID string) ([]*entity.CreditNoteDetail, error)
	// SumOpenReturns cantidad reservada por notas en DRAFT, PENDING o SENT para una línea de factura.
	SumOpenReturns(ctx context.Context, invoiceDetailID string) (decimal.Decimal, error)
}
