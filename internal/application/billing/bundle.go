package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

// DocumentBundle todo lo necesario para firmar, imprimir o finalizar un comprobante.
// Para notas de crédito Invoice/InvoiceDetails son la factura modificada.
type DocumentBundle struct {
	Kind              entity.DocumentKind
	Company           *entity.Company
	Customer          *entity.Customer
	Invoice           *entity.Invoice
	InvoiceDetails    []*entity.InvoiceDetail
	CreditNote        *entity.CreditNote
	CreditNoteDetails []*entity.CreditNoteDetail
	Record            *entity.ElectronicDocument
	// Products indexados por ID; solo se cargan cuando se necesitan para mover stock.
	Products map[string]*entity.Product
}

// ID identificador del comprobante principal.
func (b *DocumentBundle) ID() string {
	if b.Kind == entity.DocumentKindCreditNote {
		return b.CreditNote.ID
	}
	return b.Invoice.ID
}

// CompanyID emisor.
func (b *DocumentBundle) CompanyID() string {
	if b.Kind == entity.DocumentKindCreditNote {
		return b.CreditNote.CompanyID
	}
	return b.Invoice.CompanyID
}

// Number número visible 001-001-000000001.
func (b *DocumentBundle) Number() string {
	if b.Kind == entity.DocumentKindCreditNote {
		return b.CreditNote.Number()
	}
	return b.Invoice.Number()
}

// Status estado del ciclo de vida.
func (b *DocumentBundle) Status() string {
	if b.Kind == entity.DocumentKindCreditNote {
		return b.CreditNote.Status
	}
	return b.Invoice.Status
}

// setStatus valida la transición y actualiza el estado en memoria.
func (b *DocumentBundle) setStatus(to string, now time.Time) error {
	from := b.Status()
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, from, to)
	}
	if b.Kind == entity.DocumentKindCreditNote {
		b.CreditNote.Status = to
		b.CreditNote.UpdatedAt = now
	} else {
		b.Invoice.Status = to
		b.Invoice.UpdatedAt = now
	}
	return nil
}

// persistHeader guarda la cabecera del comprobante principal.
func (b *DocumentBundle) persistHeader(ctx context.Context, repos repository.Repositories) error {
	if b.Kind == entity.DocumentKindCreditNote {
		return repos.CreditNotes.Update(ctx, b.CreditNote)
	}
	return repos.Invoices.Update(ctx, b.Invoice)
}

// guardKey clave de la guarda de idempotencia.
func guardKey(kind entity.DocumentKind, id string) string {
	return string(kind) + ":" + id
}

// bundleLoader lee comprobantes completos. forUpdate bloquea la cabecera principal.
type bundleLoader struct{}

func (bundleLoader) load(
	ctx context.Context,
	repos repository.Repositories,
	kind entity.DocumentKind,
	id string,
	forUpdate bool,
) (*DocumentBundle, error) {
	b := &DocumentBundle{Kind: kind}
	var invoiceID, companyID, customerID string

	switch kind {
	case entity.DocumentKindInvoice:
		var inv *entity.Invoice
		var err error
		if forUpdate {
			inv, err = repos.Invoices.GetForUpdate(ctx, id)
		} else {
			inv, err = repos.Invoices.GetByID(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, domain.ErrNotFound
		}
		b.Invoice = inv
		invoiceID, companyID, customerID = inv.ID, inv.CompanyID, inv.CustomerID
	case entity.DocumentKindCreditNote:
		var note *entity.CreditNote
		var err error
		if forUpdate {
			note, err = repos.CreditNotes.GetForUpdate(ctx, id)
		} else {
			note, err = repos.CreditNotes.GetByID(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		if note == nil {
			return nil, domain.ErrNotFound
		}
		b.CreditNote = note
		details, err := repos.CreditNotes.GetDetailsByCreditNoteID(ctx, note.ID)
		if err != nil {
			return nil, err
		}
		b.CreditNoteDetails = details
		inv, err := repos.Invoices.GetByID(ctx, note.InvoiceID)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, fmt.Errorf("%w: factura %s de la nota de crédito", domain.ErrNotFound, note.InvoiceID)
		}
		b.Invoice = inv
		invoiceID, companyID, customerID = inv.ID, note.CompanyID, note.CustomerID
	default:
		return nil, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, kind)
	}

	details, err := repos.Invoices.GetDetailsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	b.InvoiceDetails = details

	if b.Company, err = repos.Companies.GetByID(ctx, companyID); err != nil {
		return nil, err
	}
	if b.Company == nil {
		return nil, fmt.Errorf("%w: emisor %s", domain.ErrNotFound, companyID)
	}
	if b.Customer, err = repos.Customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	if b.Customer == nil {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, customerID)
	}
	if b.Record, err = repos.Documents.GetByDocument(ctx, kind, id); err != nil {
		return nil, err
	}
	if b.Record == nil {
		return nil, fmt.Errorf("%w: registro tributario de %s", domain.ErrNotFound, id)
	}
	return b, nil
}

// loadProducts completa b.Products con los productos de las líneas.
func (bundleLoader) loadProducts(ctx context.Context, repos repository.Repositories, b *DocumentBundle) error {
	b.Products = make(map[string]*entity.Product)
	for _, d := range b.InvoiceDetails {
		if _, ok := b.Products[d.ProductID]; ok {
			continue
		}
		p, err := repos.Products.GetByID(ctx, d.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, d.ProductID)
		}
		b.Products[p.ID] = p
	}
	return nil
}
