package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var (
	_ inventory.TxRunner      = (*TxRunner)(nil)
	_ billing.BillingTxRunner = (*TxRunner)(nil)
)

// NewRepositories arma el juego completo de repositorios sobre un pool o una tx.
func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Companies:    NewCompanyRepository(q),
		Customers:    NewCustomerRepository(q),
		Products:     NewProductRepository(q),
		Lots:         NewLotRepository(q),
		Consumptions: NewLotConsumptionRepository(q),
		Movements:    NewInventoryMovementRepository(q),
		Sequences:    NewSequenceRepository(q),
		Invoices:     NewInvoiceRepository(q),
		CreditNotes:  NewCreditNoteRepository(q),
		Documents:    NewElectronicDocumentRepository(q),
		Receivables:  NewReceivableRepository(q),
	}
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunBilling misma semántica que Run; existe para satisfacer el puerto de facturación.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return r.Run(ctx, fn)
}
