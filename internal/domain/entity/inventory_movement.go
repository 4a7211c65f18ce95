package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario generados por los comprobantes.
const (
	MovementTypeOUT     = "OUT"     // salida por factura emitida
	MovementTypeRETURN  = "RETURN"  // reingreso por nota de crédito autorizada
	MovementTypeRELEASE = "RELEASE" // reingreso por factura rechazada
)

// InventoryMovement es el kardex de cada salida/reingreso. Quantity negativa en salidas.
type InventoryMovement struct {
	ID         string
	ProductID  string
	LotID      string // vacío si el producto no maneja lotes
	LineID     string // línea de factura que originó la salida o a la que se imputa el reingreso
	DocumentID string
	Type       string
	Quantity   decimal.Decimal
	CreatedAt  time.Time
}
