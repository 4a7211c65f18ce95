package dto

import (
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/shopspring/decimal"
)

// CustomerInput cliente nuevo enviado junto con la factura.
type CustomerInput struct {
	IdentificationType string `json:"identification_type" validate:"required,len=2"`
	Identification     string `json:"identification" validate:"required,max=20"`
	Name               string `json:"name" validate:"required,max=300"`
	Email              string `json:"email,omitempty" validate:"omitempty,email"`
	Phone              string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address            string `json:"address,omitempty" validate:"omitempty,max=300"`
}

// CreateInvoiceRequest body para POST /api/invoices.
// Sin customer_id ni customer se factura a consumidor final.
type CreateInvoiceRequest struct {
	CustomerID    string               `json:"customer_id,omitempty"`
	Customer      *CustomerInput       `json:"customer,omitempty" validate:"omitempty"`
	Draft         bool                 `json:"draft"`
	PaymentTerms  string               `json:"payment_terms" validate:"omitempty,oneof=CASH CREDIT"`
	PaymentMethod string               `json:"payment_method,omitempty" validate:"omitempty,len=2,numeric"`
	CreditDays    int                  `json:"credit_days" validate:"gte=0,lte=365"`
	UpfrontAmount decimal.Decimal      `json:"upfront_amount"`
	Items         []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// InvoiceItemRequest línea solicitada; precio e IVA salen del producto.
type InvoiceItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// InvoiceResponse factura con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID            string                  `json:"id"`
	CompanyID     string                  `json:"company_id"`
	CustomerID    string                  `json:"customer_id"`
	CustomerName  string                  `json:"customer_name,omitempty"`
	Number        string                  `json:"number"`
	Sequential    string                  `json:"sequential"`
	IssueDate     string                  `json:"issue_date"`
	PaymentTerms  string                  `json:"payment_terms"`
	CreditDays    int                     `json:"credit_days,omitempty"`
	UpfrontAmount decimal.Decimal         `json:"upfront_amount"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	TaxTotal      decimal.Decimal         `json:"tax_total"`
	Total         decimal.Decimal         `json:"total"`
	Status        string                  `json:"status"`
	AccessKey     string                  `json:"access_key"`
	Authorization string                  `json:"authorization_number,omitempty"`
	AuthorizedAt  string                  `json:"authorized_at,omitempty"`
	Details       []InvoiceDetailResponse `json:"details"`
}

// InvoiceDetailResponse línea de detalle en la respuesta.
type InvoiceDetailResponse struct {
	ID               string          `json:"id"`
	LineNumber       int             `json:"line_number"`
	ProductID        string          `json:"product_id"`
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	ReturnedQuantity decimal.Decimal `json:"returned_quantity"`
}

// CreateCreditNoteRequest body para POST /api/credit-notes.
type CreateCreditNoteRequest struct {
	InvoiceID string                  `json:"invoice_id" validate:"required"`
	Reason    string                  `json:"reason" validate:"required,max=300"`
	Draft     bool                    `json:"draft"`
	Items     []CreditNoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreditNoteItemRequest cantidad devuelta de una línea de la factura.
type CreditNoteItemRequest struct {
	InvoiceDetailID string          `json:"invoice_detail_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// CreditNoteResponse nota de crédito con detalle.
type CreditNoteResponse struct {
	ID            string                     `json:"id"`
	CompanyID     string                     `json:"company_id"`
	InvoiceID     string                     `json:"invoice_id"`
	InvoiceNumber string                     `json:"invoice_number"`
	CustomerID    string                     `json:"customer_id"`
	Number        string                     `json:"number"`
	Sequential    string                     `json:"sequential"`
	IssueDate     string                     `json:"issue_date"`
	Reason        string                     `json:"reason"`
	Subtotal      decimal.Decimal            `json:"subtotal"`
	TaxTotal      decimal.Decimal            `json:"tax_total"`
	Total         decimal.Decimal            `json:"total"`
	Status        string                     `json:"status"`
	AccessKey     string                     `json:"access_key"`
	Authorization string                     `json:"authorization_number,omitempty"`
	AuthorizedAt  string                     `json:"authorized_at,omitempty"`
	Details       []CreditNoteDetailResponse `json:"details"`
}

// CreditNoteDetailResponse línea devuelta.
type CreditNoteDetailResponse struct {
	ID              string          `json:"id"`
	InvoiceDetailID string          `json:"invoice_detail_id"`
	ProductID       string          `json:"product_id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
}

// DocumentStatusResponse respuesta de GET /api/{invoices|credit-notes}/:id/status.
type DocumentStatusResponse struct {
	ID            string        `json:"id"`
	Kind          string        `json:"kind"`
	Number        string        `json:"number"`
	Status        string        `json:"status"`
	AccessKey     string        `json:"access_key"`
	Authorization string        `json:"authorization_number,omitempty"`
	AuthorizedAt  string        `json:"authorized_at,omitempty"`
	Messages      []sri.Message `json:"messages,omitempty"`
	LastResponse  string        `json:"last_response,omitempty"`
}

// ReceivableResponse cuenta por cobrar con sus pagos.
type ReceivableResponse struct {
	ID          string            `json:"id"`
	InvoiceID   string            `json:"invoice_id"`
	CustomerID  string            `json:"customer_id"`
	Total       decimal.Decimal   `json:"total"`
	Outstanding decimal.Decimal   `json:"outstanding"`
	DueDate     string            `json:"due_date"`
	Status      string            `json:"status"`
	Payments    []PaymentResponse `json:"payments"`
}

// PaymentResponse pago registrado.
type PaymentResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Automatic bool            `json:"automatic"`
	PaidAt    string          `json:"paid_at"`
}

// RegisterPaymentRequest body para POST /api/receivables/:id/payments.
type RegisterPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"omitempty,len=2,numeric"`
}
