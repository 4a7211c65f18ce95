package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveLotRequest body para POST /api/products/:id/lots.
type ReceiveLotRequest struct {
	LotNumber    string          `json:"lot_number" validate:"required,max=50"`
	Quantity     decimal.Decimal `json:"quantity"`
	PurchaseDate string          `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate   string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// LotResponse lote registrado.
type LotResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	LotNumber    string          `json:"lot_number"`
	Purchased    decimal.Decimal `json:"purchased"`
	Available    decimal.Decimal `json:"available"`
	PurchaseDate time.Time       `json:"purchase_date"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
}

// AdjustStockRequest body para POST /api/products/:id/stock. Delta negativo descuenta.
type AdjustStockRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// StockResponse disponible de un producto.
type StockResponse struct {
	ProductID string          `json:"product_id"`
	Available decimal.Decimal `json:"available"`
}
