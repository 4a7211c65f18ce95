package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto vendible.
// Si TracksLots es true el disponible es la suma de sus lotes; si no, Stock es el contador único.
type Product struct {
	ID              string
	CompanyID       string
	Code            string // código principal
	Name            string
	Price           decimal.Decimal // precio de venta sin impuestos
	TaxRate         decimal.Decimal // porcentaje IVA: 0, 5, 15...
	TracksInventory bool
	TracksLots      bool
	Stock           decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
