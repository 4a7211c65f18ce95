package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/lock"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

const companyID = "company-1"

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeSigner struct{}

func (fakeSigner) Sign(_ context.Context, accessKey string, doc *billing.DocumentBundle) ([]byte, []byte, error) {
	rendered := []byte("<comprobante><claveAcceso>" + accessKey + "</claveAcceso></comprobante>")
	return rendered, append([]byte("<!-- firmado -->"), rendered...), nil
}

// fakeAuthority responde con las respuestas encoladas; vacía, recibe y autoriza.
type fakeAuthority struct {
	mu          sync.Mutex
	submits     []*sri.ReceptionResponse
	queries     []*sri.AuthorizationResponse
	submitErr   error
	queryErr    error
	submitCalls int
	queryCalls  int
}

func (f *fakeAuthority) Submit(_ context.Context, _ []byte) (*sri.ReceptionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if len(f.submits) == 0 {
		return &sri.ReceptionResponse{Status: sri.ReceptionReceived, Raw: "<RECIBIDA/>"}, nil
	}
	r := f.submits[0]
	f.submits = f.submits[1:]
	return r, nil
}

func (f *fakeAuthority) QueryAuthorization(_ context.Context, accessKey string) (*sri.AuthorizationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queries) == 0 {
		return authorized(accessKey), nil
	}
	r := f.queries[0]
	f.queries = f.queries[1:]
	return r, nil
}

func (f *fakeAuthority) calls() (submits, queries int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls, f.queryCalls
}

func authorized(number string) *sri.AuthorizationResponse {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &sri.AuthorizationResponse{
		Status:              sri.AuthorizationAuthorized,
		AuthorizationNumber: number,
		AuthorizedAt:        &at,
		Raw:                 "<AUTORIZADO/>",
	}
}

func processing() *sri.AuthorizationResponse {
	return &sri.AuthorizationResponse{Status: sri.AuthorizationProcessing, Raw: "<PROCESANDO/>"}
}

// fakeNotifier registra los correos; con hold no nil, cada envío espera a que se cierre.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []billing.DocumentEmail
	err  error
	hold chan struct{}
}

func (f *fakeNotifier) SendDocumentEmail(_ context.Context, msg billing.DocumentEmail) error {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeRenderer struct{ err error }

func (f fakeRenderer) Render(_ context.Context, doc *billing.DocumentBundle) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + doc.Number()), nil
}

var errBoom = errors.New("boom")

// ─── Harness ──────────────────────────────────────────────────────────────────

type harness struct {
	store       *memory.Store
	repos       repository.Repositories
	authority   *fakeAuthority
	notifier    *fakeNotifier
	guard       *lock.LocalGuard
	orch        *billing.AuthorizationOrchestrator
	invoices    *billing.CreateInvoiceUseCase
	notes       *billing.CreateCreditNoteUseCase
	receivables *billing.ReceivableUseCase
}

type harnessOption func(*billing.OrchestratorConfig)

func withRestoreOnRejection() harnessOption {
	return func(c *billing.OrchestratorConfig) { c.RestoreOnRejection = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	log := zerolog.Nop()

	require.NoError(t, repos.Companies.Create(ctx, &entity.Company{
		ID: companyID, RUC: "1790011674001", BusinessName: "Comercial Andina S.A.",
		Establishment: "001", EmissionPoint: "001", MainAddress: "Quito",
	}))

	cfg := billing.OrchestratorConfig{
		RetryDelays: []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond, time.Millisecond},
		Timeout:     5 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}

	authority := &fakeAuthority{}
	notifier := &fakeNotifier{}
	gate := lock.NewLocalGate()
	guard := lock.NewLocalGuard()
	ledger := inventory.NewStockLedger(inventory.RestoreLatestExpiry)
	payloads := billing.NewPayloadSigner(fakeSigner{}, billing.SRIConfig{}, log)
	notifications := billing.NewNotificationService(notifier, fakeRenderer{}, log)
	orch := billing.NewAuthorizationOrchestrator(store, repos, authority, guard, gate, ledger, payloads, notifications, cfg, log)

	return &harness{
		store:       store,
		repos:       repos,
		authority:   authority,
		notifier:    notifier,
		guard:       guard,
		orch:        orch,
		invoices:    billing.NewCreateInvoiceUseCase(store, repos, gate, ledger, payloads, orch, log),
		notes:       billing.NewCreateCreditNoteUseCase(store, repos, gate, payloads, orch, log),
		receivables: billing.NewReceivableUseCase(store, repos),
	}
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, h.orch.Wait(c))
}

// product crea un producto con IVA 15%. stock < 0 indica que no controla inventario.
func (h *harness) product(t *testing.T, id string, price string, stock int64) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID: id, CompanyID: companyID, Code: id, Name: "Producto " + id,
		Price: decimal.RequireFromString(price), TaxRate: qty(15),
		TracksInventory: stock >= 0,
	}
	if stock >= 0 {
		p.Stock = qty(stock)
	}
	require.NoError(t, h.repos.Products.Create(ctx, p))
	return p
}

func (h *harness) stock(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	p, err := h.repos.Products.GetByID(ctx, productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func (h *harness) invoiceStatus(t *testing.T, id string) string {
	t.Helper()
	inv, err := h.repos.Invoices.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv.Status
}

func (h *harness) noteStatus(t *testing.T, id string) string {
	t.Helper()
	n, err := h.repos.CreditNotes.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, n)
	return n.Status
}

// authorizedInvoice crea una factura de contado y espera su autorización.
func (h *harness) authorizedInvoice(t *testing.T, productID string, quantity int64) *dto.InvoiceResponse {
	t.Helper()
	inv, err := h.invoices.CreateInvoice(ctx, companyID, "user-1", dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: productID, Quantity: qty(quantity)}},
	})
	require.NoError(t, err)
	h.wait(t)
	require.Equal(t, entity.DocumentStatusAuthorized, h.invoiceStatus(t, inv.ID))
	return inv
}
