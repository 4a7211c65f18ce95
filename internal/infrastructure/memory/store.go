// Package memory implementa los puertos de persistencia en memoria del proceso.
// Las transacciones trabajan sobre una copia del estado confirmado y la publican al terminar sin error;
// los escritores se serializan. Sirve para pruebas y para levantar la API sin Postgres.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

type state struct {
	companies      map[string]entity.Company
	customers      map[string]entity.Customer
	products       map[string]entity.Product
	lots           map[string]entity.InventoryLot
	consumptions   []entity.LotConsumption
	movements      []entity.InventoryMovement
	sequences      map[string]entity.SequenceCounter
	invoices       map[string]entity.Invoice
	invoiceDetails map[string]entity.InvoiceDetail
	creditNotes    map[string]entity.CreditNote
	creditDetails  map[string]entity.CreditNoteDetail
	documents      map[string]entity.ElectronicDocument
	receivables    map[string]entity.AccountsReceivable
	payments       []entity.Payment
}

func newState() *state {
	return &state{
		companies:      map[string]entity.Company{},
		customers:      map[string]entity.Customer{},
		products:       map[string]entity.Product{},
		lots:           map[string]entity.InventoryLot{},
		sequences:      map[string]entity.SequenceCounter{},
		invoices:       map[string]entity.Invoice{},
		invoiceDetails: map[string]entity.InvoiceDetail{},
		creditNotes:    map[string]entity.CreditNote{},
		creditDetails:  map[string]entity.CreditNoteDetail{},
		documents:      map[string]entity.ElectronicDocument{},
		receivables:    map[string]entity.AccountsReceivable{},
	}
}

func (s *state) clone() *state {
	return &state{
		companies:      copyMap(s.companies),
		customers:      copyMap(s.customers),
		products:       copyMap(s.products),
		lots:           copyMap(s.lots),
		consumptions:   append([]entity.LotConsumption(nil), s.consumptions...),
		movements:      append([]entity.InventoryMovement(nil), s.movements...),
		sequences:      copyMap(s.sequences),
		invoices:       copyMap(s.invoices),
		invoiceDetails: copyMap(s.invoiceDetails),
		creditNotes:    copyMap(s.creditNotes),
		creditDetails:  copyMap(s.creditDetails),
		documents:      copyMap(s.documents),
		receivables:    copyMap(s.receivables),
		payments:       append([]entity.Payment(nil), s.payments...),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// access abstrae si una operación corre sobre el estado confirmado o sobre la copia de una transacción.
type access interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

// Store estado confirmado más los candados de lectura y de escritores.
type Store struct {
	mu        sync.RWMutex
	writers   sync.Mutex
	committed *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{committed: newState()}
}

// Repositories repositorios en modo autocommit. No deben usarse dentro de una función pasada a Run.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(autocommit{s})
}

// Run ejecuta fn sobre una copia del estado; si fn no falla la copia pasa a ser el estado confirmado.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.writers.Lock()
	defer s.writers.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(newRepositories(txAccess{work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// RunBilling mismo contrato que Run; existe para satisfacer el puerto de facturación.
func (s *Store) RunBilling(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return s.Run(ctx, fn)
}

type autocommit struct{ s *Store }

func (a autocommit) read(fn func(st *state) error) error {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.committed)
}

func (a autocommit) write(fn func(st *state) error) error {
	a.s.writers.Lock()
	defer a.s.writers.Unlock()
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(a.s.committed)
}

type txAccess struct{ st *state }

func (t txAccess) read(fn func(st *state) error) error  { return fn(t.st) }
func (t txAccess) write(fn func(st *state) error) error { return fn(t.st) }

func newRepositories(a access) repository.Repositories {
	return repository.Repositories{
		Companies:    &companyRepo{a},
		Customers:    &customerRepo{a},
		Products:     &productRepo{a},
		Lots:         &lotRepo{a},
		Consumptions: &consumptionRepo{a},
		Movements:    &movementRepo{a},
		Sequences:    &sequenceRepo{a},
		Invoices:     &invoiceRepo{a},
		CreditNotes:  &creditNoteRepo{a},
		Documents:    &documentRepo{a},
		Receivables:  &receivableRepo{a},
	}
}
