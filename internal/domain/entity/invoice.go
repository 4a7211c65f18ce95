package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condiciones de pago.
const (
	PaymentTermsCash   = "CASH"
	PaymentTermsCredit = "CREDIT"
)

// Invoice representa la cabecera de una factura.
type Invoice struct {
	ID            string
	CompanyID     string
	CustomerID    string
	Establishment string
	EmissionPoint string
	Sequential    string // 9 dígitos con ceros a la izquierda
	IssueDate     time.Time
	PaymentTerms  string
	PaymentMethod string // código SRI de forma de pago
	CreditDays    int
	UpfrontAmount decimal.Decimal
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	Status        string
	StockReleased bool // stock devuelto tras un rechazo
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Number número visible del comprobante: 001-001-000000123.
func (i *Invoice) Number() string {
	return i.Establishment + "-" + i.EmissionPoint + "-" + i.Sequential
}
