package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/rs/zerolog"
)

// ErrAuthorityUnavailable el SRI no respondió durante una consulta en primer plano.
var ErrAuthorityUnavailable = errors.New("servicio del SRI no disponible")

// DefaultRetryDelays esperas antes de cada consulta de autorización.
var DefaultRetryDelays = []time.Duration{
	2500 * time.Millisecond,
	5000 * time.Millisecond,
	10000 * time.Millisecond,
	15000 * time.Millisecond,
}

// OrchestratorConfig parámetros del envío y sondeo.
type OrchestratorConfig struct {
	RetryDelays []time.Duration
	// Timeout límite total de una tarea en segundo plano.
	Timeout time.Duration
	// RestoreOnRejection devuelve al inventario lo descontado por una factura rechazada.
	RestoreOnRejection bool
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.RetryDelays == nil {
		c.RetryDelays = DefaultRetryDelays
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	return c
}

// AuthorizationOrchestrator lleva un comprobante firmado hasta su estado terminal ante el SRI:
//
//	PENDING → recepción → SENT → sondeo de autorización → AUTHORIZED | REJECTED
//
// El envío corre en una goroutine desacoplada del request HTTP; Wait permite esperar las tareas
// en curso al apagar el servicio, incluidas las que se lancen mientras espera. La finalización es idempotente por documento: la guarda evita
// que dos finalizaciones concurrentes apliquen efectos dos veces y la relectura bajo bloqueo
// convierte en no-op cualquier finalización sobre un estado terminal.
type AuthorizationOrchestrator struct {
	txRunner      BillingTxRunner
	repos         repository.Repositories
	client        AuthorityClient
	guard         IdempotencyGuard
	gate          CreationGate
	ledger        *inventory.StockLedger
	payloads      *PayloadSigner
	receivables   *ReceivableGenerator
	notifications *NotificationService
	loader        bundleLoader
	cfg           OrchestratorConfig
	log           zerolog.Logger
	now           func() time.Time

	tasks taskTracker
}

// NewAuthorizationOrchestrator construye el orquestador. notifications puede ser nil.
func NewAuthorizationOrchestrator(
	txRunner BillingTxRunner,
	repos repository.Repositories,
	client AuthorityClient,
	guard IdempotencyGuard,
	gate CreationGate,
	ledger *inventory.StockLedger,
	payloads *PayloadSigner,
	notifications *NotificationService,
	cfg OrchestratorConfig,
	log zerolog.Logger,
) *AuthorizationOrchestrator {
	return &AuthorizationOrchestrator{
		txRunner:      txRunner,
		repos:         repos,
		client:        client,
		guard:         guard,
		gate:          gate,
		ledger:        ledger,
		payloads:      payloads,
		receivables:   NewReceivableGenerator(),
		notifications: notifications,
		cfg:           cfg.withDefaults(),
		log:           log,
		now:           time.Now,
	}
}

// ProcessAsync dispara el envío y sondeo del comprobante en segundo plano.
func (o *AuthorizationOrchestrator) ProcessAsync(kind entity.DocumentKind, id string) {
	o.tasks.add()
	go func() {
		defer o.tasks.done()
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Timeout)
		defer cancel()
		o.process(ctx, kind, id)
	}()
}

// Wait bloquea hasta que terminen las tareas en segundo plano o hasta que ctx expire.
func (o *AuthorizationOrchestrator) Wait(ctx context.Context) error {
	return o.tasks.wait(ctx)
}

// taskTracker cuenta las goroutines en curso. A diferencia de sync.WaitGroup admite altas
// mientras otro goroutine espera: una consulta en primer plano puede lanzar la notificación
// durante el apagado.
type taskTracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (t *taskTracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *taskTracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

func (t *taskTracker) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.n == 0 {
			t.mu.Unlock()
			return nil
		}
		idle := t.idle
		t.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// authOutcome resultado terminal a aplicar.
type authOutcome struct {
	authorized          bool
	authorizationNumber string
	authorizedAt        *time.Time
	raw                 string
}

func (o *AuthorizationOrchestrator) process(ctx context.Context, kind entity.DocumentKind, id string) {
	logger := o.log.With().Str("kind", string(kind)).Str("document_id", id).Logger()

	b, err := o.loader.load(ctx, o.repos, kind, id, false)
	if err != nil {
		logger.Error().Err(err).Msg("[SRI] no se pudo leer el comprobante")
		return
	}
	status := b.Status()
	if entity.IsTerminalStatus(status) || status == entity.DocumentStatusDraft {
		logger.Debug().Str("status", status).Msg("[SRI] nada que enviar")
		return
	}

	if status == entity.DocumentStatusPending {
		sent, err := o.submit(ctx, kind, id, b, logger)
		if err != nil {
			logger.Error().Err(err).Msg("[SRI] recepción fallida; el comprobante queda PENDING")
			return
		}
		if !sent {
			return
		}
	}

	for attempt, delay := range o.cfg.RetryDelays {
		if err := sleepCtx(ctx, delay); err != nil {
			logger.Warn().Err(err).Msg("[SRI] sondeo interrumpido")
			return
		}
		resp, err := o.client.QueryAuthorization(ctx, b.Record.AccessKey)
		if err != nil {
			logger.Error().Err(err).Int("attempt", attempt+1).Msg("[SRI] consulta de autorización fallida")
			return
		}
		if resp.IsProcessing() {
			logger.Debug().Int("attempt", attempt+1).Msg("[SRI] en procesamiento")
			continue
		}
		if _, err := o.finalize(ctx, kind, id, outcomeFrom(resp)); err != nil {
			logger.Error().Err(err).Msg("[SRI] finalización fallida")
		}
		return
	}
	logger.Warn().Msg("[SRI] sin respuesta definitiva; el comprobante queda SENT para consulta posterior")
}

// submit envía el XML firmado de un comprobante PENDING. sent=true si el SRI lo recibió y quedó
// SENT; sent=false si lo devolvió y ya se registró el rechazo. Un error de transporte o un estado
// de recepción desconocido retorna ErrAuthorityUnavailable y deja el comprobante PENDING.
func (o *AuthorizationOrchestrator) submit(ctx context.Context, kind entity.DocumentKind, id string, b *DocumentBundle, logger zerolog.Logger) (sent bool, err error) {
	if !b.Record.IsSigned() {
		return false, fmt.Errorf("%w: comprobante pendiente sin firma", domain.ErrInvalidState)
	}
	resp, err := o.client.Submit(ctx, []byte(b.Record.SignedXML))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	switch {
	case resp.Returned():
		logger.Warn().Interface("messages", resp.Messages).Msg("[SRI] comprobante DEVUELTO")
		if _, err := o.finalize(ctx, kind, id, authOutcome{raw: resp.Raw}); err != nil {
			return false, fmt.Errorf("registrar rechazo: %w", err)
		}
		return false, nil
	case !resp.Accepted():
		return false, fmt.Errorf("%w: estado de recepción desconocido %q", ErrAuthorityUnavailable, resp.Status)
	}
	if resp.HasErrorCode(sri.ErrorCodeAlreadyRegistered) {
		logger.Info().Msg("[SRI] clave de acceso ya registrada (43); se consulta la autorización")
	}
	if err := o.markSent(ctx, kind, id, resp.Raw); err != nil {
		return false, fmt.Errorf("marcar SENT: %w", err)
	}
	return true, nil
}

func outcomeFrom(resp *sri.AuthorizationResponse) authOutcome {
	return authOutcome{
		authorized:          resp.IsAuthorized(),
		authorizationNumber: resp.AuthorizationNumber,
		authorizedAt:        resp.AuthorizedAt,
		raw:                 resp.Raw,
	}
}

// markSent PENDING → SENT; si el documento ya avanzó no hace nada.
func (o *AuthorizationOrchestrator) markSent(ctx context.Context, kind entity.DocumentKind, id, raw string) error {
	return o.txRunner.RunBilling(ctx, func(repos repository.Repositories) error {
		b, err := o.loader.load(ctx, repos, kind, id, true)
		if err != nil {
			return err
		}
		if b.Status() != entity.DocumentStatusPending {
			return nil
		}
		now := o.now()
		if err := b.setStatus(entity.DocumentStatusSent, now); err != nil {
			return err
		}
		if err := b.persistHeader(ctx, repos); err != nil {
			return err
		}
		b.Record.LastResponse = raw
		b.Record.UpdatedAt = now
		return repos.Documents.Update(ctx, b.Record)
	})
}

// finalize aplica el resultado terminal una sola vez. applied=false si otra finalización
// estaba en curso o el documento ya era terminal.
func (o *AuthorizationOrchestrator) finalize(ctx context.Context, kind entity.DocumentKind, id string, out authOutcome) (applied bool, err error) {
	release, ok, err := o.guard.TryAcquire(ctx, guardKey(kind, id))
	if err != nil {
		return false, fmt.Errorf("guarda de idempotencia: %w", err)
	}
	if !ok {
		o.log.Info().Str("document_id", id).Msg("[SRI] finalización en curso por otra tarea")
		return false, nil
	}
	defer release()

	var b *DocumentBundle
	err = o.txRunner.RunBilling(ctx, func(repos repository.Repositories) error {
		var err error
		b, err = o.loader.load(ctx, repos, kind, id, true)
		if err != nil {
			return err
		}
		if entity.IsTerminalStatus(b.Status()) {
			b = nil
			return nil
		}
		now := o.now()
		b.Record.LastResponse = out.raw
		b.Record.UpdatedAt = now

		if !out.authorized {
			if err := b.setStatus(entity.DocumentStatusRejected, now); err != nil {
				return err
			}
			if kind == entity.DocumentKindInvoice && o.cfg.RestoreOnRejection && !b.Invoice.StockReleased {
				if err := o.releaseInvoiceStock(ctx, repos, b); err != nil {
					return err
				}
				b.Invoice.StockReleased = true
			}
			if err := b.persistHeader(ctx, repos); err != nil {
				return err
			}
			return repos.Documents.Update(ctx, b.Record)
		}

		if err := b.setStatus(entity.DocumentStatusAuthorized, now); err != nil {
			return err
		}
		b.Record.AuthorizationNumber = out.authorizationNumber
		if b.Record.AuthorizationNumber == "" {
			b.Record.AuthorizationNumber = b.Record.AccessKey
		}
		at := now
		if out.authorizedAt != nil {
			at = *out.authorizedAt
		}
		b.Record.AuthorizedAt = &at
		if err := b.persistHeader(ctx, repos); err != nil {
			return err
		}
		if err := repos.Documents.Update(ctx, b.Record); err != nil {
			return err
		}
		if kind == entity.DocumentKindInvoice {
			_, err := o.receivables.Generate(ctx, repos, b.Invoice)
			return err
		}
		return o.applyReturns(ctx, repos, b)
	})
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}

	o.log.Info().
		Str("kind", string(kind)).
		Str("document_id", id).
		Str("number", b.Number()).
		Str("status", b.Status()).
		Msg("[SRI] comprobante finalizado")
	if b.Status() == entity.DocumentStatusAuthorized {
		o.notifyAsync(b)
	}
	return true, nil
}

// applyReturns suma lo devuelto a cada línea de la factura y reingresa el stock.
func (o *AuthorizationOrchestrator) applyReturns(ctx context.Context, repos repository.Repositories, b *DocumentBundle) error {
	for _, d := range b.CreditNoteDetails {
		line, err := repos.Invoices.GetDetailByID(ctx, d.InvoiceDetailID)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("%w: línea %s", domain.ErrNotFound, d.InvoiceDetailID)
		}
		if err := repos.Invoices.UpdateDetailReturned(ctx, line.ID, line.ReturnedQuantity.Add(d.Quantity)); err != nil {
			return err
		}
		product, err := repos.Products.GetByID(ctx, d.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, d.ProductID)
		}
		if _, err := o.ledger.Restore(ctx, repos, product, d.Quantity, line.ID, b.CreditNote.ID); err != nil {
			return err
		}
	}
	return nil
}

func (o *AuthorizationOrchestrator) releaseInvoiceStock(ctx context.Context, repos repository.Repositories, b *DocumentBundle) error {
	if err := o.loader.loadProducts(ctx, repos, b); err != nil {
		return err
	}
	for _, d := range b.InvoiceDetails {
		if _, err := o.ledger.Release(ctx, repos, b.Products[d.ProductID], d.Quantity, d.ID, b.Invoice.ID); err != nil {
			return err
		}
	}
	return nil
}

func (o *AuthorizationOrchestrator) notifyAsync(b *DocumentBundle) {
	if o.notifications == nil {
		return
	}
	o.tasks.add()
	go func() {
		defer o.tasks.done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		o.notifications.NotifyAuthorized(ctx, b)
	}()
}

// Issue emite un borrador: DRAFT → PENDING. Las facturas descuentan stock; las notas de crédito
// vuelven a validar las devoluciones. Tras el commit se lanza el envío.
func (o *AuthorizationOrchestrator) Issue(ctx context.Context, companyID string, kind entity.DocumentKind, id string) (*dto.DocumentStatusResponse, error) {
	if kind == entity.DocumentKindCreditNote {
		release, err := o.gate.Acquire(ctx, creditNoteGateKey)
		if err != nil {
			return nil, fmt.Errorf("compuerta de creación: %w", err)
		}
		defer release()
	}
	b, err := o.transition(ctx, companyID, kind, id, func(repos repository.Repositories, b *DocumentBundle) error {
		if err := b.setStatus(entity.DocumentStatusPending, o.now()); err != nil {
			return err
		}
		if kind == entity.DocumentKindCreditNote {
			if b.Invoice.Status != entity.DocumentStatusAuthorized {
				return fmt.Errorf("%w: la factura %s no está autorizada", domain.ErrInvalidState, b.Invoice.Number())
			}
			if err := checkReturnable(ctx, repos, b.CreditNoteDetails, true); err != nil {
				return err
			}
		} else {
			if err := o.loader.loadProducts(ctx, repos, b); err != nil {
				return err
			}
			for _, d := range b.InvoiceDetails {
				if _, err := o.ledger.Deplete(ctx, repos, b.Products[d.ProductID], d.Quantity, d); err != nil {
					return err
				}
			}
		}
		return o.payloads.Sign(ctx, repos, b)
	})
	if err != nil {
		return nil, err
	}
	o.ProcessAsync(kind, id)
	return toStatusResponse(b, nil), nil
}

// Cancel anula un borrador. Los comprobantes enviados no se anulan por esta vía.
func (o *AuthorizationOrchestrator) Cancel(ctx context.Context, companyID string, kind entity.DocumentKind, id string) (*dto.DocumentStatusResponse, error) {
	b, err := o.transition(ctx, companyID, kind, id, func(_ repository.Repositories, b *DocumentBundle) error {
		return b.setStatus(entity.DocumentStatusCancelled, o.now())
	})
	if err != nil {
		return nil, err
	}
	return toStatusResponse(b, nil), nil
}

// Reactivate devuelve un comprobante anulado a borrador. Una nota de crédito vuelve a reservar
// sus devoluciones, por lo que se validan contra lo que aún puede devolverse.
func (o *AuthorizationOrchestrator) Reactivate(ctx context.Context, companyID string, kind entity.DocumentKind, id string) (*dto.DocumentStatusResponse, error) {
	if kind == entity.DocumentKindCreditNote {
		release, err := o.gate.Acquire(ctx, creditNoteGateKey)
		if err != nil {
			return nil, fmt.Errorf("compuerta de creación: %w", err)
		}
		defer release()
	}
	b, err := o.transition(ctx, companyID, kind, id, func(repos repository.Repositories, b *DocumentBundle) error {
		if err := b.setStatus(entity.DocumentStatusDraft, o.now()); err != nil {
			return err
		}
		if kind == entity.DocumentKindCreditNote {
			return checkReturnable(ctx, repos, b.CreditNoteDetails, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toStatusResponse(b, nil), nil
}

// transition relee el comprobante bloqueado, verifica la empresa, aplica fn y guarda la cabecera.
func (o *AuthorizationOrchestrator) transition(
	ctx context.Context,
	companyID string,
	kind entity.DocumentKind,
	id string,
	fn func(repos repository.Repositories, b *DocumentBundle) error,
) (*DocumentBundle, error) {
	var out *DocumentBundle
	err := o.txRunner.RunBilling(ctx, func(repos repository.Repositories) error {
		b, err := o.loader.load(ctx, repos, kind, id, true)
		if err != nil {
			return err
		}
		if b.CompanyID() != companyID {
			return domain.ErrForbidden
		}
		if err := fn(repos, b); err != nil {
			return err
		}
		if err := b.persistHeader(ctx, repos); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckStatus consulta al SRI en primer plano. Un comprobante PENDING se reenvía antes de
// consultar (el error 43 cuenta como recibido). Si hay respuesta definitiva la aplica igual que
// el sondeo; en otro caso retorna el estado guardado con los mensajes recibidos.
func (o *AuthorizationOrchestrator) CheckStatus(ctx context.Context, companyID string, kind entity.DocumentKind, id string) (*dto.DocumentStatusResponse, error) {
	b, err := o.loader.load(ctx, o.repos, kind, id, false)
	if err != nil {
		return nil, err
	}
	if b.CompanyID() != companyID {
		return nil, domain.ErrForbidden
	}
	status := b.Status()
	if status != entity.DocumentStatusSent && status != entity.DocumentStatusPending {
		return toStatusResponse(b, nil), nil
	}

	if status == entity.DocumentStatusPending {
		logger := o.log.With().Str("kind", string(kind)).Str("document_id", id).Logger()
		sent, err := o.submit(ctx, kind, id, b, logger)
		if err != nil {
			return nil, err
		}
		fresh, err := o.loader.load(ctx, o.repos, kind, id, false)
		if err != nil {
			return nil, err
		}
		if !sent {
			return toStatusResponse(fresh, nil), nil
		}
		b = fresh
	}

	resp, err := o.client.QueryAuthorization(ctx, b.Record.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	if resp.IsProcessing() {
		return toStatusResponse(b, resp.Messages), nil
	}
	if _, err := o.finalize(ctx, kind, id, outcomeFrom(resp)); err != nil {
		return nil, err
	}
	fresh, err := o.loader.load(ctx, o.repos, kind, id, false)
	if err != nil {
		return nil, err
	}
	return toStatusResponse(fresh, resp.Messages), nil
}

func toStatusResponse(b *DocumentBundle, messages []sri.Message) *dto.DocumentStatusResponse {
	resp := &dto.DocumentStatusResponse{
		ID:       b.ID(),
		Kind:     string(b.Kind),
		Number:   b.Number(),
		Status:   b.Status(),
		Messages: messages,
	}
	if b.Record != nil {
		resp.AccessKey = b.Record.AccessKey
		resp.Authorization = b.Record.AuthorizationNumber
		resp.LastResponse = b.Record.LastResponse
		if b.Record.AuthorizedAt != nil {
			resp.AuthorizedAt = b.Record.AuthorizedAt.Format(time.RFC3339)
		}
	}
	return resp
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
