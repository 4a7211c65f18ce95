package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLot es un lote de compra de un producto. 0 <= Available <= Purchased.
type InventoryLot struct {
	ID           string
	ProductID    string
	LotNumber    string
	Purchased    decimal.Decimal
	Available    decimal.Decimal
	PurchaseDate time.Time
	ExpiryDate   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LotConsumption registra que una línea de factura consumió Quantity unidades de un lote.
type LotConsumption struct {
	ID              string
	InvoiceDetailID string
	LotID           string
	Quantity        decimal.Decimal
	CreatedAt       time.Time
}
