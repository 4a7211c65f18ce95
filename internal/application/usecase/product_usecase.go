package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
	"github.com/shopspring/decimal"
)

// ProductUseCase alta y consulta de productos. El stock se mueve vía lotes, ajustes y facturación.
type ProductUseCase struct {
	repo  repository.ProductRepository
	stock *inventory.StockUseCase
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, stock *inventory.StockUseCase) *ProductUseCase {
	return &ProductUseCase{repo: repo, stock: stock}
}

// Create crea un producto. El IVA debe ser una tarifa del catálogo del SRI.
// InitialStock solo aplica a productos con contador único.
func (uc *ProductUseCase) Create(ctx context.Context, companyID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
	}
	if !in.TaxRate.IsInteger() || sri.IVARateCode(in.TaxRate.IntPart()) == sri.IVARateCodeNoObjeto {
		return nil, fmt.Errorf("%w: tarifa de IVA %s no soportada", domain.ErrInvalidInput, in.TaxRate.String())
	}
	if in.TracksLots && !in.TracksInventory {
		return nil, fmt.Errorf("%w: un producto por lotes debe controlar inventario", domain.ErrInvalidInput)
	}
	if in.InitialStock.IsNegative() || (in.TracksLots && !in.InitialStock.IsZero()) {
		return nil, fmt.Errorf("%w: stock inicial inválido", domain.ErrInvalidInput)
	}
	now := time.Now()
	product := &entity.Product{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		Code:            strings.TrimSpace(in.Code),
		Name:            strings.TrimSpace(in.Name),
		Price:           in.Price,
		TaxRate:         in.TaxRate,
		TracksInventory: in.TracksInventory,
		TracksLots:      in.TracksLots,
		Stock:           decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.TracksInventory && !in.TracksLots {
		product.Stock = in.InitialStock
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product, product.Stock), nil
}

// GetByID obtiene un producto con su disponible.
func (uc *ProductUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	available, err := uc.stock.Available(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product, available), nil
}

func toProductResponse(p *entity.Product, available decimal.Decimal) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:              p.ID,
		CompanyID:       p.CompanyID,
		Code:            p.Code,
		Name:            p.Name,
		Price:           p.Price,
		TaxRate:         p.TaxRate,
		TracksInventory: p.TracksInventory,
		TracksLots:      p.TracksLots,
		Available:       available,
		CreatedAt:       p.CreatedAt,
	}
}
