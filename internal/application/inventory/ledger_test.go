package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx  = context.Background()
)

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func datePtr(t time.Time) *time.Time { return &t }

// ──────────────────────────────────────────────────────────────────────────────
// fixture: producto por lotes con lote1 (2 disp., compra más antigua) y lote2 (5 disp.).
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store   *memory.Store
	repos   repository.Repositories
	product *entity.Product
	line    *entity.InvoiceDetail
}

func newLotFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	p := &entity.Product{ID: "prod-lotes", CompanyID: "co", Name: "Paracetamol 500mg", TracksInventory: true, TracksLots: true}
	require.NoError(t, repos.Products.Create(ctx, p))
	require.NoError(t, repos.Lots.Create(ctx, &entity.InventoryLot{
		ID: "lot1", ProductID: p.ID, Purchased: qty(10), Available: qty(2),
		PurchaseDate: day0, ExpiryDate: datePtr(day0.AddDate(0, 6, 0)),
	}))
	require.NoError(t, repos.Lots.Create(ctx, &entity.InventoryLot{
		ID: "lot2", ProductID: p.ID, Purchased: qty(5), Available: qty(5),
		PurchaseDate: day0.AddDate(0, 0, 10), ExpiryDate: datePtr(day0.AddDate(1, 0, 0)),
	}))
	require.NoError(t, repos.Invoices.Create(ctx, &entity.Invoice{ID: "inv-1", CompanyID: "co", Sequential: "000000001"}))
	line := &entity.InvoiceDetail{ID: "line-1", InvoiceID: "inv-1", LineNumber: 1, ProductID: p.ID, Quantity: qty(3)}
	require.NoError(t, repos.Invoices.CreateDetail(ctx, line))
	return &fixture{store: store, repos: repos, product: p, line: line}
}

func (f *fixture) available(t *testing.T, lotID string) decimal.Decimal {
	t.Helper()
	l, err := f.repos.Lots.GetByID(ctx, lotID)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.Available
}

// Escenario A: 3 unidades -> 2 del lote más antiguo y 1 del siguiente, en ese orden.
func TestDeplete_FIFOEntreLotes(t *testing.T) {
	f := newLotFixture(t)
	ledger := inventory.NewStockLedger(inventory.RestoreLatestExpiry)

	var allocs []inventory.Allocation
	err := f.store.Run(ctx, func(repos repository.Repositories) error {
		var err error
		allocs, err = ledger.Deplete(ctx, repos, f.product, qty(3), f.line)
		return err
	})
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "lot1", allocs[0].LotID)
	assert.True(t, allocs[0].Quantity.Equal(qty(2)))
	assert.Equal(t, "lot2", allocs[1].LotID)
	assert.True(t, allocs[1].Quantity.Equal(qty(1)))

	assert.True(t, f.available(t, "lot1").IsZero())
	assert.True(t, f.available(t, "lot2").Equal(qty(4)))

	links, err := f.repos.Consumptions.ListByInvoiceDetail(ctx, "line-1")
	require.NoError(t, err)
	assert.Len(t, links, 2, "un vínculo por lote tocado")
}

// Escenario B: pedir 10 con 7 disponibles falla sin tocar ningún lote.
func TestDeplete_InsuficienteNoMutaLotes(t *testing.T) {
	f := newLotFixture(t)
	ledger := inventory.NewStockLedger(inventory.RestoreLatestExpiry)

	err := f.store.Run(ctx, func(repos repository.Repositories) error {
		_, err := ledger.Deplete(ctx, repos, f.product, qty(10), f.line)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Paracetamol 500mg", stockErr.ProductName)
	assert.True(t, stockErr.Shortfall().Equal(qty(3)), "faltan 3 unidades")

	assert.True(t, f.available(t, "lot1").Equal(qty(2)))
	assert.True(t, f.available(t, "lot2").Equal(qty(5)))
	links, _ := f.repos.Consumptions.ListByInvoiceDetail(ctx, "line-1")
	assert.Empty(t, links)
}

// Con la misma fecha de compra se consume primero el lote registrado antes, aunque su ID ordene después.
func TestDeplete_MismaFechaDeCompraUsaFechaDeRegistro(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	p := &entity.Product{ID: "prod-eq", CompanyID: "co", Name: "Ibuprofeno 400mg", TracksInventory: true, TracksLots: true}
	require.NoError(t, repos.Products.Create(ctx, p))
	require.NoError(t, repos.Lots.Create(ctx, &entity.InventoryLot{
		ID: "lot-a", ProductID: p.ID, Purchased: qty(4), Available: qty(4),
		PurchaseDate: day0, CreatedAt: day0.Add(2 * time.Hour),
	}))
	require.NoError(t, repos.Lots.Create(ctx, &entity.InventoryLot{
		ID: "lot-b", ProductID: p.ID, Purchased: qty(4), Available: qty(4),
		PurchaseDate: day0, CreatedAt: day0.Add(time.Hour),
	}))
	line := &entity.InvoiceDetail{ID: "line-eq", InvoiceID: "inv-eq", ProductID: p.ID, Quantity: qty(5)}

	var allocs []inventory.Allocation
	require.NoError(t, store.Run(ctx, func(r repository.Repositories) error {
		var err error
		allocs, err = inventory.NewStockLedger("").Deplete(ctx, r, p, qty(5), line)
		return err
	}))
	require.Len(t, allocs, 2)
	assert.Equal(t, "lot-b", allocs[0].LotID)
	assert.True(t, allocs[0].Quantity.Equal(qty(4)))
	assert.Equal(t, "lot-a", allocs[1].LotID)
	assert.True(t, allocs[1].Quantity.Equal(qty(1)))
}

func TestDeplete_ContadorUnico(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	p := &entity.Product{ID: "p1", Name: "Cuaderno", TracksInventory: true, Stock: qty(4)}
	require.NoError(t, repos.Products.Create(ctx, p))
	line := &entity.InvoiceDetail{ID: "l1", InvoiceID: "i1", ProductID: "p1", Quantity: qty(3)}
	ledger := inventory.NewStockLedger("")

	require.NoError(t, store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Deplete(ctx, r, p, qty(3), line)
		return err
	}))
	got, _ := repos.Products.GetByID(ctx, "p1")
	assert.True(t, got.Stock.Equal(qty(1)))

	err := store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Deplete(ctx, r, p, qty(2), line)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	got, _ = repos.Products.GetByID(ctx, "p1")
	assert.True(t, got.Stock.Equal(qty(1)), "sin cambios tras el rechazo")
}

func TestDeplete_ProductoSinInventario(t *testing.T) {
	p := &entity.Product{ID: "svc", Name: "Servicio técnico"}
	allocs, err := inventory.NewStockLedger("").Deplete(ctx, memory.NewStore().Repositories(), p, qty(99), &entity.InvoiceDetail{ID: "x"})
	require.NoError(t, err)
	assert.Nil(t, allocs)
}

// Reingreso por defecto: todo al lote consumido con vencimiento más lejano.
func TestRestore_LatestExpiry(t *testing.T) {
	f := newLotFixture(t)
	ledger := inventory.NewStockLedger(inventory.RestoreLatestExpiry)
	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Deplete(ctx, r, f.product, qty(3), f.line)
		return err
	}))

	var allocs []inventory.Allocation
	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		var err error
		allocs, err = ledger.Restore(ctx, r, f.product, qty(1), "line-1", "nc-1")
		return err
	}))
	require.Len(t, allocs, 1)
	assert.Equal(t, "lot2", allocs[0].LotID, "lot2 vence después")
	assert.True(t, f.available(t, "lot2").Equal(qty(5)))
	assert.True(t, f.available(t, "lot1").IsZero())
}

// Si el lote de vencimiento más lejano no tiene capacidad, el resto pasa al siguiente.
func TestRestore_LatestExpiryRespetaComprado(t *testing.T) {
	f := newLotFixture(t)
	ledger := inventory.NewStockLedger(inventory.RestoreLatestExpiry)
	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Deplete(ctx, r, f.product, qty(3), f.line)
		return err
	}))
	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Restore(ctx, r, f.product, qty(3), "line-1", "nc-1")
		return err
	}))
	assert.True(t, f.available(t, "lot2").Equal(qty(5)), "lot2 nunca supera lo comprado")
	assert.True(t, f.available(t, "lot1").Equal(qty(2)))
}

func TestRestore_Mirror(t *testing.T) {
	f := newLotFixture(t)
	ledger := inventory.NewStockLedger(inventory.RestoreMirror)
	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Deplete(ctx, r, f.product, qty(3), f.line)
		return err
	}))
	// lot2 aportó 1 unidad: la segunda unidad devuelta va a lot1.
	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Restore(ctx, r, f.product, qty(2), "line-1", "nc-1")
		return err
	}))
	assert.True(t, f.available(t, "lot2").Equal(qty(5)))
	assert.True(t, f.available(t, "lot1").Equal(qty(1)))

	require.NoError(t, f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Restore(ctx, r, f.product, qty(1), "line-1", "nc-2")
		return err
	}))
	assert.True(t, f.available(t, "lot1").Equal(qty(2)))

	err := f.store.Run(ctx, func(r repository.Repositories) error {
		_, err := ledger.Restore(ctx, r, f.product, qty(1), "line-1", "nc-3")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrConflict, "no se puede devolver más de lo consumido")
}

func TestRelease_ContadorUnico(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	p := &entity.Product{ID: "p1", Name: "Cuaderno", TracksInventory: true, Stock: qty(1)}
	require.NoError(t, repos.Products.Create(ctx, p))
	require.NoError(t, store.Run(ctx, func(r repository.Repositories) error {
		_, err := inventory.NewStockLedger("").Release(ctx, r, p, qty(2), "l1", "inv-1")
		return err
	}))
	got, _ := repos.Products.GetByID(ctx, "p1")
	assert.True(t, got.Stock.Equal(qty(3)))

	movs, err := repos.Movements.ListByDocument(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeRELEASE, movs[0].Type)
}

func TestParseRestorePolicy(t *testing.T) {
	p, err := inventory.ParseRestorePolicy("")
	require.NoError(t, err)
	assert.Equal(t, inventory.RestoreLatestExpiry, p)
	p, err = inventory.ParseRestorePolicy("mirror")
	require.NoError(t, err)
	assert.Equal(t, inventory.RestoreMirror, p)
	_, err = inventory.ParseRestorePolicy("random")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
