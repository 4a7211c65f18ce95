package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
// TaxRate es el porcentaje de IVA (0, 5, 12, 13, 14 o 15).
type CreateProductRequest struct {
	Code            string          `json:"code" validate:"required,max=25"`
	Name            string          `json:"name" validate:"required,max=300"`
	Price           decimal.Decimal `json:"price"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TracksInventory bool            `json:"tracks_inventory"`
	TracksLots      bool            `json:"tracks_lots"`
	InitialStock    decimal.Decimal `json:"initial_stock"`
}

// ProductResponse salida de un producto con su disponible actual.
type ProductResponse struct {
	ID              string          `json:"id"`
	CompanyID       string          `json:"company_id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TracksInventory bool            `json:"tracks_inventory"`
	TracksLots      bool            `json:"tracks_lots"`
	Available       decimal.Decimal `json:"available"`
	CreatedAt       time.Time       `json:"created_at"`
}
