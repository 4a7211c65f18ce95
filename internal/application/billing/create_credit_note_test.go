package billing_test

import (
	"testing"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noteRequest(inv *dto.InvoiceResponse, quantity int64, draft bool) dto.CreateCreditNoteRequest {
	return dto.CreateCreditNoteRequest{
		InvoiceID: inv.ID,
		Reason:    "Devolución de mercadería",
		Draft:     draft,
		Items:     []dto.CreditNoteItemRequest{{InvoiceDetailID: inv.Details[0].ID, Quantity: qty(quantity)}},
	}
}

func (h *harness) returned(t *testing.T, detailID string) string {
	t.Helper()
	d, err := h.repos.Invoices.GetDetailByID(ctx, detailID)
	require.NoError(t, err)
	return d.ReturnedQuantity.String()
}

// Escenario F: las devoluciones acumuladas nunca superan lo facturado.
func TestCreateCreditNote_LimiteDeDevolucion(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", 10)
	inv := h.authorizedInvoice(t, "p1", 5)
	assert.Equal(t, "5", h.stock(t, "p1").String())

	note, err := h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 3, false))
	require.NoError(t, err)
	assert.Equal(t, "000000001", note.Sequential)
	assert.Equal(t, inv.Number, note.InvoiceNumber)
	assert.Equal(t, "30", note.Subtotal.String())
	assert.Equal(t, "4.5", note.TaxTotal.String())
	require.NoError(t, sri.ValidateAccessKey(note.AccessKey))
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusAuthorized, h.noteStatus(t, note.ID))
	assert.Equal(t, "3", h.returned(t, inv.Details[0].ID))
	assert.Equal(t, "8", h.stock(t, "p1").String())

	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 3, false))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	last, err := h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 2, false))
	require.NoError(t, err)
	assert.Equal(t, "000000002", last.Sequential)
	h.wait(t)
	assert.Equal(t, "5", h.returned(t, inv.Details[0].ID))
	assert.Equal(t, "10", h.stock(t, "p1").String())

	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 1, false))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateCreditNote_BorradoresReservanDevoluciones(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	inv := h.authorizedInvoice(t, "p1", 5)

	draft, err := h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 4, true))
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusDraft, draft.Status)

	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 2, false))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.orch.Cancel(ctx, companyID, entity.DocumentKindCreditNote, draft.ID)
	require.NoError(t, err)

	other, err := h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 2, false))
	require.NoError(t, err)
	h.wait(t)
	assert.Equal(t, entity.DocumentStatusAuthorized, h.noteStatus(t, other.ID))

	// 2 devueltas + 4 del borrador superan las 5 facturadas
	_, err = h.orch.Reactivate(ctx, companyID, entity.DocumentKindCreditNote, draft.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, entity.DocumentStatusCancelled, h.noteStatus(t, draft.ID))
}

func TestCreateCreditNote_EmitirBorrador(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	inv := h.authorizedInvoice(t, "p1", 5)

	draft, err := h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 5, true))
	require.NoError(t, err)

	st, err := h.orch.Issue(ctx, companyID, entity.DocumentKindCreditNote, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, st.Status)
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusAuthorized, h.noteStatus(t, draft.ID))
	assert.Equal(t, "5", h.returned(t, inv.Details[0].ID))
}

func TestCreateCreditNote_FacturaNoAutorizada(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Draft: true, Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(2)}},
	})
	require.NoError(t, err)

	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 1, false))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCreateCreditNote_Validaciones(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	inv := h.authorizedInvoice(t, "p1", 2)

	_, err := h.notes.CreateCreditNote(ctx, "otra", "u", noteRequest(inv, 1, false))
	assert.Error(t, err)

	req := noteRequest(inv, 1, false)
	req.Items = append(req.Items, req.Items[0])
	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = noteRequest(inv, 1, false)
	req.Items[0].InvoiceDetailID = "otra-linea"
	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = noteRequest(inv, 1, false)
	req.Reason = ""
	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.notes.CreateCreditNote(ctx, companyID, "u", dto.CreateCreditNoteRequest{
		InvoiceID: "no-existe", Reason: "x",
		Items: []dto.CreditNoteItemRequest{{InvoiceDetailID: "l", Quantity: qty(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
