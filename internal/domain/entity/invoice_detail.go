package entity

import "github.com/shopspring/decimal"

// InvoiceDetail representa una línea de detalle de una factura.
// ReturnedQuantity solo crece con notas de crédito autorizadas y nunca supera Quantity.
type InvoiceDetail struct {
	ID               string
	InvoiceID        string
	LineNumber       int
	ProductID        string
	ProductCode      string
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	TaxRate          decimal.Decimal
	Subtotal         decimal.Decimal
	TaxAmount        decimal.Decimal
	ReturnedQuantity decimal.Decimal
}

// Returnable cantidad que aún puede devolverse.
func (d *InvoiceDetail) Returnable() decimal.Decimal {
	return d.Quantity.Sub(d.ReturnedQuantity)
}
