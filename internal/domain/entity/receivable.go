package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de cuenta por cobrar.
const (
	ReceivableStatusPending = "PENDING"
	ReceivableStatusPaid    = "PAID"
)

// AccountsReceivable cuenta por cobrar, única por factura autorizada.
type AccountsReceivable struct {
	ID          string
	CompanyID   string
	InvoiceID   string
	CustomerID  string
	Total       decimal.Decimal
	Outstanding decimal.Decimal
	DueDate     time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPaid saldo en cero.
func (r *AccountsReceivable) IsPaid() bool {
	return !r.Outstanding.IsPositive()
}

// Payment abono registrado contra una factura.
type Payment struct {
	ID           string
	InvoiceID    string
	ReceivableID string
	Amount       decimal.Decimal
	Method       string // código SRI de forma de pago
	Automatic    bool   // generado por el sistema (contado o abono inicial)
	PaidAt       time.Time
	CreatedAt    time.Time
}
