package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// StockUseCase ingresos de mercadería y consultas de disponibilidad.
type StockUseCase struct {
	txRunner TxRunner
	repos    repository.Repositories
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(txRunner TxRunner, repos repository.Repositories) *StockUseCase {
	return &StockUseCase{txRunner: txRunner, repos: repos}
}

// ReceiveLotInput entrada para registrar un lote de compra.
type ReceiveLotInput struct {
	CompanyID    string
	ProductID    string
	LotNumber    string
	Quantity     decimal.Decimal
	PurchaseDate time.Time
	ExpiryDate   *time.Time
}

// ReceiveLot registra un lote nuevo (disponible = comprado) para un producto que maneja lotes.
func (uc *StockUseCase) ReceiveLot(ctx context.Context, in ReceiveLotInput) (*entity.InventoryLot, error) {
	if in.ProductID == "" || !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if in.ExpiryDate != nil && in.ExpiryDate.Before(in.PurchaseDate) {
		return nil, fmt.Errorf("%w: el vencimiento es anterior a la compra", domain.ErrInvalidInput)
	}
	var lot *entity.InventoryLot
	err := uc.txRunner.Run(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil || product.CompanyID != in.CompanyID {
			return domain.ErrNotFound
		}
		if !product.TracksLots {
			return fmt.Errorf("%w: el producto no maneja lotes", domain.ErrInvalidInput)
		}
		now := time.Now()
		purchase := in.PurchaseDate
		if purchase.IsZero() {
			purchase = now
		}
		lot = &entity.InventoryLot{
			ID:           uuid.New().String(),
			ProductID:    product.ID,
			LotNumber:    in.LotNumber,
			Purchased:    in.Quantity,
			Available:    in.Quantity,
			PurchaseDate: purchase,
			ExpiryDate:   in.ExpiryDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return repos.Lots.Create(ctx, lot)
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// AdjustStock suma (o resta, con delta negativo) al contador único de un producto sin lotes.
func (uc *StockUseCase) AdjustStock(ctx context.Context, companyID, productID string, delta decimal.Decimal) error {
	if productID == "" || delta.IsZero() {
		return domain.ErrInvalidInput
	}
	return uc.txRunner.Run(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil || product.CompanyID != companyID {
			return domain.ErrNotFound
		}
		if product.TracksLots {
			return fmt.Errorf("%w: el stock de productos por lote se ajusta por lote", domain.ErrInvalidInput)
		}
		next := product.Stock.Add(delta)
		if next.IsNegative() {
			return &domain.InsufficientStockError{
				ProductID: product.ID, ProductName: product.Name, Requested: delta.Neg(), Available: product.Stock,
			}
		}
		return repos.Products.UpdateStock(ctx, product.ID, next)
	})
}

// Available disponible actual: suma de lotes o contador único.
func (uc *StockUseCase) Available(ctx context.Context, productID string) (decimal.Decimal, error) {
	product, err := uc.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if product == nil {
		return decimal.Zero, domain.ErrNotFound
	}
	if !product.TracksLots {
		return product.Stock, nil
	}
	lots, err := uc.repos.Lots.ListByProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.Available)
	}
	return total, nil
}
