package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_AutorizaYGeneraCuentaPorCobrar(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", 10)

	inv := h.authorizedInvoice(t, "p1", 2)

	rec, err := h.repos.Documents.GetByDocument(ctx, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.AccessKey, rec.AuthorizationNumber)
	require.NotNil(t, rec.AuthorizedAt)
	assert.Equal(t, "8", h.stock(t, "p1").String())

	ar, err := h.receivables.GetByInvoice(ctx, companyID, inv.ID)
	require.NoError(t, err)
	assert.True(t, ar.Outstanding.IsZero())
	assert.Equal(t, entity.ReceivableStatusPaid, ar.Status)
	require.Len(t, ar.Payments, 1)
	assert.True(t, ar.Payments[0].Automatic)
	assert.Equal(t, "23", ar.Payments[0].Amount.String())
}

// Escenario D: "clave de acceso registrada" (43) no es rechazo; se sigue con la consulta.
func TestOrchestrator_Error43ContinuaConSondeo(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.submits = []*sri.ReceptionResponse{{
		Status:   sri.ReceptionReturned,
		Messages: []sri.Message{{Identifier: "43", Message: "CLAVE ACCESO REGISTRADA", Type: "ERROR"}},
	}}

	inv := h.authorizedInvoice(t, "p1", 1)

	submits, queries := h.authority.calls()
	assert.Equal(t, 1, submits)
	assert.Equal(t, 1, queries)
	_, err := h.repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	assert.NoError(t, err)
}

func TestOrchestrator_DevueltaEsRechazo(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", 4)
	h.authority.submits = []*sri.ReceptionResponse{{
		Status:   sri.ReceptionReturned,
		Messages: []sri.Message{{Identifier: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Type: "ERROR"}},
		Raw:      "<DEVUELTA/>",
	}}

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(3)}},
	})
	require.NoError(t, err)
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusRejected, h.invoiceStatus(t, inv.ID))
	_, queries := h.authority.calls()
	assert.Zero(t, queries)
	rec, err := h.repos.Documents.GetByDocument(ctx, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "<DEVUELTA/>", rec.LastResponse)
	// sin reingreso configurado el stock queda descontado
	assert.Equal(t, "1", h.stock(t, "p1").String())
	ar, err := h.repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, ar)
}

func TestOrchestrator_NoAutorizadoReingresaStockSiEstaConfigurado(t *testing.T) {
	h := newHarness(t, withRestoreOnRejection())
	h.product(t, "p1", "10.00", 4)
	h.authority.queries = []*sri.AuthorizationResponse{{Status: sri.AuthorizationUnauthorized, Raw: "<NO/>"}}

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(3)}},
	})
	require.NoError(t, err)
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusRejected, h.invoiceStatus(t, inv.ID))
	assert.Equal(t, "4", h.stock(t, "p1").String())
	stored, err := h.repos.Invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.StockReleased)
}

func TestOrchestrator_ProcesandoAgotaReintentosYQuedaSent(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.queries = []*sri.AuthorizationResponse{processing(), processing(), processing(), processing()}

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusSent, h.invoiceStatus(t, inv.ID))
	_, queries := h.authority.calls()
	assert.Equal(t, 4, queries)

	// la consulta en primer plano resuelve el estado
	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAuthorized, st.Status)
	assert.Equal(t, inv.AccessKey, st.Authorization)

	// segunda consulta: estado terminal, sin nueva llamada ni efectos repetidos
	st, err = h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAuthorized, st.Status)
	_, queries = h.authority.calls()
	assert.Equal(t, 5, queries)
	payments, err := h.repos.Receivables.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	h.wait(t)
}

func TestOrchestrator_FalloDeRecepcionDejaPending(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.submitErr = errBoom

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)
	assert.Equal(t, entity.DocumentStatusPending, h.invoiceStatus(t, inv.ID))
}

// Un comprobante que quedó PENDING por un fallo de recepción se reenvía al consultar su estado.
func TestCheckStatus_PendingReenvia(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.submitErr = errBoom

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)
	require.Equal(t, entity.DocumentStatusPending, h.invoiceStatus(t, inv.ID))

	// el SRI sigue caído: la consulta falla y el comprobante no se mueve
	_, err = h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, billing.ErrAuthorityUnavailable)
	assert.Equal(t, entity.DocumentStatusPending, h.invoiceStatus(t, inv.ID))

	h.authority.mu.Lock()
	h.authority.submitErr = nil
	h.authority.mu.Unlock()

	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAuthorized, st.Status)
	submits, queries := h.authority.calls()
	assert.Equal(t, 3, submits)
	assert.Equal(t, 1, queries)
	ar, err := h.repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	require.NoError(t, err)
	assert.NotNil(t, ar)
	h.wait(t)
}

// En el reenvío, "clave de acceso registrada" (43) cuenta como recibido y se pasa a SENT.
func TestCheckStatus_PendingReenviaConClaveRegistrada(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.submitErr = errBoom

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)

	h.authority.mu.Lock()
	h.authority.submitErr = nil
	h.authority.submits = []*sri.ReceptionResponse{{
		Status:   sri.ReceptionReturned,
		Messages: []sri.Message{{Identifier: "43", Message: "CLAVE ACCESO REGISTRADA", Type: "ERROR"}},
	}}
	h.authority.queries = []*sri.AuthorizationResponse{processing()}
	h.authority.mu.Unlock()

	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusSent, st.Status)
	_, queries := h.authority.calls()
	assert.Equal(t, 1, queries)
}

func TestCheckStatus_PendingReenviadoYDevuelto(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.submitErr = errBoom

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)

	h.authority.mu.Lock()
	h.authority.submitErr = nil
	h.authority.submits = []*sri.ReceptionResponse{{
		Status:   sri.ReceptionReturned,
		Messages: []sri.Message{{Identifier: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Type: "ERROR"}},
		Raw:      "<DEVUELTA/>",
	}}
	h.authority.mu.Unlock()

	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusRejected, st.Status)
	assert.Equal(t, "<DEVUELTA/>", st.LastResponse)
	_, queries := h.authority.calls()
	assert.Zero(t, queries)
}

// Una recepción sin estado reconocible no es rechazo: el comprobante sigue PENDING y se reintenta.
func TestOrchestrator_RecepcionConEstadoDesconocidoQuedaPending(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.submits = []*sri.ReceptionResponse{{Status: ""}, {Status: "EN PROCESO"}}

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)
	assert.Equal(t, entity.DocumentStatusPending, h.invoiceStatus(t, inv.ID))
	_, queries := h.authority.calls()
	assert.Zero(t, queries)

	_, err = h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, billing.ErrAuthorityUnavailable)
	assert.Equal(t, entity.DocumentStatusPending, h.invoiceStatus(t, inv.ID))

	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAuthorized, st.Status)
	submits, _ := h.authority.calls()
	assert.Equal(t, 3, submits)
	h.wait(t)
}

// Sondeo en segundo plano y consultas concurrentes sobre la misma nota de crédito: la devolución
// y el reingreso de stock se aplican una sola vez.
func TestCheckStatus_NotaDeCreditoConcurrenteDevuelveUnaVez(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", 10)
	inv := h.authorizedInvoice(t, "p1", 5)

	h.authority.mu.Lock()
	h.authority.queries = []*sri.AuthorizationResponse{processing(), processing(), processing(), processing()}
	h.authority.mu.Unlock()
	note, err := h.notes.CreateCreditNote(ctx, companyID, "u", noteRequest(inv, 2, false))
	require.NoError(t, err)
	h.wait(t)
	require.Equal(t, entity.DocumentStatusSent, h.noteStatus(t, note.ID))
	require.Equal(t, "5", h.stock(t, "p1").String())

	h.orch.ProcessAsync(entity.DocumentKindCreditNote, note.ID)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindCreditNote, note.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusAuthorized, h.noteStatus(t, note.ID))
	assert.Equal(t, "2", h.returned(t, inv.Details[0].ID))
	assert.Equal(t, "7", h.stock(t, "p1").String())
}

func TestCheckStatus_SRIInaccesible(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.queries = []*sri.AuthorizationResponse{processing(), processing(), processing(), processing()}
	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)

	h.authority.mu.Lock()
	h.authority.queryErr = errBoom
	h.authority.mu.Unlock()
	_, err = h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, billing.ErrAuthorityUnavailable)
	assert.Equal(t, entity.DocumentStatusSent, h.invoiceStatus(t, inv.ID))
}

// Con la guarda tomada por otra finalización, la consulta no aplica efectos y retorna lo guardado.
func TestCheckStatus_GuardaOcupada(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.queries = []*sri.AuthorizationResponse{processing(), processing(), processing(), processing()}
	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)

	release, ok, err := h.guard.TryAcquire(ctx, "invoice:"+inv.ID)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusSent, st.Status)
	ar, err := h.repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, ar)
}

func TestOrchestrator_NotificaAlCliente(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Customer: &dto.CustomerInput{
			IdentificationType: "05", Identification: "1710034065", Name: "María Pérez", Email: "maria@example.com",
		},
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)

	require.Equal(t, 1, h.notifier.count())
	msg := h.notifier.sent[0]
	assert.Equal(t, "maria@example.com", msg.Recipient)
	assert.Equal(t, inv.Number, msg.DocumentNumber)
	assert.NotEmpty(t, msg.Attachment)
	assert.NotEmpty(t, msg.SignedXML)
}

// Wait también cubre la notificación que lanza una consulta en primer plano mientras otro
// goroutine ya esperaba.
func TestOrchestrator_WaitIncluyeNotificacionDeConsulta(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.authority.queries = []*sri.AuthorizationResponse{processing(), processing(), processing(), processing()}

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Customer: &dto.CustomerInput{
			IdentificationType: "05", Identification: "1710034065", Name: "María Pérez", Email: "maria@example.com",
		},
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)
	require.Equal(t, entity.DocumentStatusSent, h.invoiceStatus(t, inv.ID))

	hold := make(chan struct{})
	h.notifier.hold = hold
	waited := make(chan error, 1)
	go func() {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		waited <- h.orch.Wait(c)
	}()

	st, err := h.orch.CheckStatus(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DocumentStatusAuthorized, st.Status)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.orch.Wait(short), context.DeadlineExceeded, "la notificación sigue en curso")

	close(hold)
	h.wait(t)
	assert.NoError(t, <-waited)
	assert.Equal(t, 1, h.notifier.count())
}

func TestOrchestrator_FalloDeCorreoNoAfectaAutorizacion(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)
	h.notifier.err = errBoom

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Customer: &dto.CustomerInput{
			IdentificationType: "05", Identification: "0926687856", Name: "Luis Mora", Email: "luis@example.com",
		},
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)
	h.wait(t)
	assert.Equal(t, entity.DocumentStatusAuthorized, h.invoiceStatus(t, inv.ID))
	assert.Equal(t, 1, h.notifier.count())
}

func TestOrchestrator_AnularYReactivarBorrador(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", 5)

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Draft: true, Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "5", h.stock(t, "p1").String())

	st, err := h.orch.Cancel(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusCancelled, st.Status)

	_, err = h.orch.Cancel(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = h.orch.Issue(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	st, err = h.orch.Reactivate(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusDraft, st.Status)

	_, err = h.orch.Issue(ctx, "otra", entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	st, err = h.orch.Issue(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, st.Status)
	h.wait(t)

	assert.Equal(t, entity.DocumentStatusAuthorized, h.invoiceStatus(t, inv.ID))
	assert.Equal(t, "3", h.stock(t, "p1").String())

	// un comprobante autorizado no se anula
	_, err = h.orch.Cancel(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestOrchestrator_EmitirBorradorSinStock(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", 1)

	inv, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Draft: true, Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(2)}},
	})
	require.NoError(t, err)

	_, err = h.orch.Issue(ctx, companyID, entity.DocumentKindInvoice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, entity.DocumentStatusDraft, h.invoiceStatus(t, inv.ID))
}

func TestOrchestrator_WaitRespetaContexto(t *testing.T) {
	h := newHarness(t)
	h.product(t, "p1", "10.00", -1)

	_, err := h.invoices.CreateInvoice(ctx, companyID, "u", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Quantity: qty(1)}},
	})
	require.NoError(t, err)

	expired, cancel := context.WithTimeout(ctx, -time.Second)
	defer cancel()
	// con el plazo vencido Wait retorna el error del contexto o nil si la tarea ya terminó
	if err := h.orch.Wait(expired); err != nil {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	h.wait(t)
}
