package billing_test

import (
	"testing"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Escenario E: crédito a 10 días sin abono; vence en emisión + 10 y el saldo es el total.
func TestReceivable_CreditoSinAbono(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		PaymentTerms: entity.PaymentTermsCredit,
		CreditDays:   10,
		Items:        []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(4)}},
	})
	require.NoError(t, err)
	h.wait(t)

	stored, err := h.repos.Invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	ar, err := h.repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, ar)
	assert.True(t, ar.DueDate.Equal(stored.IssueDate.AddDate(0, 0, 10)))
	assert.Equal(t, "46", ar.Outstanding.String())
	assert.Equal(t, entity.ReceivableStatusPending, ar.Status)
	payments, err := h.repos.Receivables.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestReceivable_CreditoConAbonoYPagos(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		PaymentTerms:  entity.PaymentTermsCredit,
		CreditDays:    30,
		UpfrontAmount: qty(6),
		Items:         []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(4)}},
	})
	require.NoError(t, err)
	h.wait(t)

	ar, err := h.receivables.GetByInvoice(ctx, companyID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "40", ar.Outstanding.String())
	require.Len(t, ar.Payments, 1)
	assert.True(t, ar.Payments[0].Automatic)
	assert.Equal(t, "6", ar.Payments[0].Amount.String())

	_, err = h.receivables.RegisterPayment(ctx, companyID, ar.ID, dto.RegisterPaymentRequest{Amount: qty(41)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = h.receivables.RegisterPayment(ctx, "otra", ar.ID, dto.RegisterPaymentRequest{Amount: qty(1)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	ar, err = h.receivables.RegisterPayment(ctx, companyID, ar.ID, dto.RegisterPaymentRequest{Amount: qty(40), Method: "19"})
	require.NoError(t, err)
	assert.True(t, ar.Outstanding.IsZero())
	assert.Equal(t, entity.ReceivableStatusPaid, ar.Status)
	assert.Len(t, ar.Payments, 2)
}

func TestReceivable_GenerarEsIdempotente(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	inv := h.authorizedInvoice(t, "p1", 1)

	stored, err := h.repos.Invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	first, err := h.repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	require.NoError(t, err)

	gen := billing.NewReceivableGenerator()
	again, err := gen.Generate(ctx, h.repos, stored)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	payments, err := h.repos.Receivables.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestReceivable_NoExiste(t *testing.T) {
	h := newHarness(t)
	_, err := h.receivables.GetByInvoice(ctx, companyID, "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
