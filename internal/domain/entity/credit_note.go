package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote nota de crédito que modifica exactamente una factura.
type CreditNote struct {
	ID            string
	CompanyID     string
	InvoiceID     string
	CustomerID    string
	Establishment string
	EmissionPoint string
	Sequential    string
	IssueDate     time.Time
	Reason        string
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	Status        string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Number número visible del comprobante.
func (n *CreditNote) Number() string {
	return n.Establishment + "-" + n.EmissionPoint + "-" + n.Sequential
}

// CreditNoteDetail línea devuelta; referencia una línea de la factura original.
type CreditNoteDetail struct {
	ID              string
	CreditNoteID    string
	InvoiceDetailID string
	LineNumber      int
	ProductID       string
	ProductCode     string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TaxRate         decimal.Decimal
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
}
