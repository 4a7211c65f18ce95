package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.CompanyRepository            = (*companyRepo)(nil)
	_ repository.CustomerRepository           = (*customerRepo)(nil)
	_ repository.ProductRepository            = (*productRepo)(nil)
	_ repository.LotRepository                = (*lotRepo)(nil)
	_ repository.LotConsumptionRepository     = (*consumptionRepo)(nil)
	_ repository.InventoryMovementRepository  = (*movementRepo)(nil)
	_ repository.SequenceRepository           = (*sequenceRepo)(nil)
	_ repository.InvoiceRepository            = (*invoiceRepo)(nil)
	_ repository.CreditNoteRepository         = (*creditNoteRepo)(nil)
	_ repository.ElectronicDocumentRepository = (*documentRepo)(nil)
	_ repository.ReceivableRepository         = (*receivableRepo)(nil)
)

// ── companies ───────────────────────────────────────────────────────────────

type companyRepo struct{ a access }

func (r *companyRepo) Create(_ context.Context, c *entity.Company) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.companies[c.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, other := range st.companies {
			if other.RUC == c.RUC {
				return domain.ErrDuplicate
			}
		}
		st.companies[c.ID] = *c
		return nil
	})
}

func (r *companyRepo) GetByID(_ context.Context, id string) (out *entity.Company, err error) {
	err = r.a.read(func(st *state) error {
		if c, ok := st.companies[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

// ── customers ───────────────────────────────────────────────────────────────

type customerRepo struct{ a access }

func (r *customerRepo) Create(_ context.Context, c *entity.Customer) error {
	return r.a.write(func(st *state) error {
		for _, x := range st.customers {
			if x.CompanyID == c.CompanyID && x.Identification == c.Identification {
				return domain.ErrDuplicate
			}
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepo) GetByID(_ context.Context, id string) (out *entity.Customer, err error) {
	err = r.a.read(func(st *state) error {
		if c, ok := st.customers[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *customerRepo) GetByIdentification(_ context.Context, companyID, identification string) (out *entity.Customer, err error) {
	err = r.a.read(func(st *state) error {
		for _, c := range st.customers {
			if c.CompanyID == companyID && c.Identification == identification {
				c := c
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ── products ────────────────────────────────────────────────────────────────

type productRepo struct{ a access }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return domain.ErrDuplicate
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *productRepo) GetByID(_ context.Context, id string) (out *entity.Product, err error) {
	err = r.a.read(func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) UpdateStock(_ context.Context, id string, stock decimal.Decimal) error {
	return r.a.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		p.Stock = stock
		st.products[id] = p
		return nil
	})
}

// ── lots ────────────────────────────────────────────────────────────────────

type lotRepo struct{ a access }

func (r *lotRepo) Create(_ context.Context, l *entity.InventoryLot) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.lots[l.ID]; ok {
			return domain.ErrDuplicate
		}
		st.lots[l.ID] = *l
		return nil
	})
}

func (r *lotRepo) GetByID(_ context.Context, id string) (out *entity.InventoryLot, err error) {
	err = r.a.read(func(st *state) error {
		if l, ok := st.lots[id]; ok {
			out = &l
		}
		return nil
	})
	return out, err
}

func (r *lotRepo) ListAvailableForUpdate(_ context.Context, productID string) (out []*entity.InventoryLot, err error) {
	err = r.a.read(func(st *state) error {
		for _, l := range st.lots {
			if l.ProductID == productID && l.Available.IsPositive() {
				l := l
				out = append(out, &l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.Before(out[j].PurchaseDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *lotRepo) ListByIDsForUpdate(_ context.Context, ids []string) (out []*entity.InventoryLot, err error) {
	err = r.a.read(func(st *state) error {
		for _, id := range ids {
			if l, ok := st.lots[id]; ok {
				out = append(out, &l)
			}
		}
		return nil
	})
	return out, err
}

func (r *lotRepo) UpdateAvailable(_ context.Context, id string, available decimal.Decimal) error {
	return r.a.write(func(st *state) error {
		l, ok := st.lots[id]
		if !ok {
			return domain.ErrNotFound
		}
		if available.IsNegative() || available.GreaterThan(l.Purchased) {
			return domain.ErrConflict
		}
		l.Available = available
		st.lots[id] = l
		return nil
	})
}

func (r *lotRepo) ListByProduct(_ context.Context, productID string) (out []*entity.InventoryLot, err error) {
	err = r.a.read(func(st *state) error {
		for _, l := range st.lots {
			if l.ProductID == productID {
				l := l
				out = append(out, &l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.Before(out[j].PurchaseDate) })
	return out, err
}

// ── lot consumptions ────────────────────────────────────────────────────────

type consumptionRepo struct{ a access }

func (r *consumptionRepo) Create(_ context.Context, c *entity.LotConsumption) error {
	return r.a.write(func(st *state) error {
		st.consumptions = append(st.consumptions, *c)
		return nil
	})
}

func (r *consumptionRepo) ListByInvoiceDetail(_ context.Context, detailID string) (out []*entity.LotConsumption, err error) {
	err = r.a.read(func(st *state) error {
		for _, c := range st.consumptions {
			if c.InvoiceDetailID == detailID {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

// ── movements ───────────────────────────────────────────────────────────────

type movementRepo struct{ a access }

func (r *movementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	return r.a.write(func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *movementRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.InventoryMovement, error) {
	return r.list(func(m entity.InventoryMovement) bool { return m.DocumentID == documentID })
}

func (r *movementRepo) ListByLine(_ context.Context, lineID string) ([]*entity.InventoryMovement, error) {
	return r.list(func(m entity.InventoryMovement) bool { return m.LineID == lineID })
}

func (r *movementRepo) list(match func(entity.InventoryMovement) bool) (out []*entity.InventoryMovement, err error) {
	err = r.a.read(func(st *state) error {
		for _, m := range st.movements {
			if match(m) {
				m := m
				out = append(out, &m)
			}
		}
		return nil
	})
	return out, err
}

// ── sequences ───────────────────────────────────────────────────────────────

type sequenceRepo struct{ a access }

func sequenceKey(establishment, emissionPoint string) string {
	return establishment + "-" + emissionPoint
}

func (r *sequenceRepo) GetForUpdate(_ context.Context, establishment, emissionPoint string) (out *entity.SequenceCounter, err error) {
	err = r.a.read(func(st *state) error {
		if c, ok := st.sequences[sequenceKey(establishment, emissionPoint)]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *sequenceRepo) Create(_ context.Context, c *entity.SequenceCounter) error {
	return r.a.write(func(st *state) error {
		k := sequenceKey(c.Establishment, c.EmissionPoint)
		if _, ok := st.sequences[k]; ok {
			return domain.ErrDuplicate
		}
		st.sequences[k] = *c
		return nil
	})
}

func (r *sequenceRepo) Update(_ context.Context, c *entity.SequenceCounter) error {
	return r.a.write(func(st *state) error {
		k := sequenceKey(c.Establishment, c.EmissionPoint)
		if _, ok := st.sequences[k]; !ok {
			return domain.ErrNotFound
		}
		st.sequences[k] = *c
		return nil
	})
}

// ── invoices ────────────────────────────────────────────────────────────────

type invoiceRepo struct{ a access }

func (r *invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	return r.a.write(func(st *state) error {
		for _, x := range st.invoices {
			if x.CompanyID == inv.CompanyID && x.Establishment == inv.Establishment &&
				x.EmissionPoint == inv.EmissionPoint && x.Sequential == inv.Sequential {
				return domain.ErrDuplicate
			}
		}
		st.invoices[inv.ID] = *inv
		return nil
	})
}

func (r *invoiceRepo) CreateDetail(_ context.Context, d *entity.InvoiceDetail) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.invoices[d.InvoiceID]; !ok {
			return domain.ErrNotFound
		}
		st.invoiceDetails[d.ID] = *d
		return nil
	})
}

func (r *invoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.invoices[inv.ID]; !ok {
			return domain.ErrNotFound
		}
		st.invoices[inv.ID] = *inv
		return nil
	})
}

func (r *invoiceRepo) GetByID(_ context.Context, id string) (out *entity.Invoice, err error) {
	err = r.a.read(func(st *state) error {
		if inv, ok := st.invoices[id]; ok {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r *invoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) GetDetailsByInvoiceID(_ context.Context, invoiceID string) (out []*entity.InvoiceDetail, err error) {
	err = r.a.read(func(st *state) error {
		for _, d := range st.invoiceDetails {
			if d.InvoiceID == invoiceID {
				d := d
				out = append(out, &d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, err
}

func (r *invoiceRepo) GetDetailByID(_ context.Context, id string) (out *entity.InvoiceDetail, err error) {
	err = r.a.read(func(st *state) error {
		if d, ok := st.invoiceDetails[id]; ok {
			out = &d
		}
		return nil
	})
	return out, err
}

func (r *invoiceRepo) UpdateDetailReturned(_ context.Context, detailID string, returned decimal.Decimal) error {
	return r.a.write(func(st *state) error {
		d, ok := st.invoiceDetails[detailID]
		if !ok {
			return domain.ErrNotFound
		}
		if returned.IsNegative() || returned.GreaterThan(d.Quantity) {
			return domain.ErrConflict
		}
		d.ReturnedQuantity = returned
		st.invoiceDetails[detailID] = d
		return nil
	})
}

// ── credit notes ────────────────────────────────────────────────────────────

type creditNoteRepo struct{ a access }

func (r *creditNoteRepo) Create(_ context.Context, n *entity.CreditNote) error {
	return r.a.write(func(st *state) error {
		for _, x := range st.creditNotes {
			if x.CompanyID == n.CompanyID && x.Establishment == n.Establishment &&
				x.EmissionPoint == n.EmissionPoint && x.Sequential == n.Sequential {
				return domain.ErrDuplicate
			}
		}
		st.creditNotes[n.ID] = *n
		return nil
	})
}

func (r *creditNoteRepo) CreateDetail(_ context.Context, d *entity.CreditNoteDetail) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.creditNotes[d.CreditNoteID]; !ok {
			return domain.ErrNotFound
		}
		st.creditDetails[d.ID] = *d
		return nil
	})
}

func (r *creditNoteRepo) Update(_ context.Context, n *entity.CreditNote) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.creditNotes[n.ID]; !ok {
			return domain.ErrNotFound
		}
		st.creditNotes[n.ID] = *n
		return nil
	})
}

func (r *creditNoteRepo) GetByID(_ context.Context, id string) (out *entity.CreditNote, err error) {
	err = r.a.read(func(st *state) error {
		if n, ok := st.creditNotes[id]; ok {
			out = &n
		}
		return nil
	})
	return out, err
}

func (r *creditNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.GetByID(ctx, id)
}

func (r *creditNoteRepo) GetDetailsByCreditNoteID(_ context.Context, noteID string) (out []*entity.CreditNoteDetail, err error) {
	err = r.a.read(func(st *state) error {
		for _, d := range st.creditDetails {
			if d.CreditNoteID == noteID {
				d := d
				out = append(out, &d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, err
}

func (r *creditNoteRepo) SumOpenReturns(_ context.Context, invoiceDetailID string) (sum decimal.Decimal, err error) {
	err = r.a.read(func(st *state) error {
		for _, d := range st.creditDetails {
			if d.InvoiceDetailID != invoiceDetailID {
				continue
			}
			switch st.creditNotes[d.CreditNoteID].Status {
			case entity.DocumentStatusDraft, entity.DocumentStatusPending, entity.DocumentStatusSent:
				sum = sum.Add(d.Quantity)
			}
		}
		return nil
	})
	return sum, err
}

// ── electronic documents ────────────────────────────────────────────────────

type documentRepo struct{ a access }

func documentKey(kind entity.DocumentKind, id string) string { return string(kind) + ":" + id }

func (r *documentRepo) Create(_ context.Context, d *entity.ElectronicDocument) error {
	return r.a.write(func(st *state) error {
		k := documentKey(d.DocumentKind, d.DocumentID)
		if _, ok := st.documents[k]; ok {
			return domain.ErrDuplicate
		}
		for _, x := range st.documents {
			if x.AccessKey == d.AccessKey {
				return domain.ErrDuplicate
			}
		}
		st.documents[k] = *d
		return nil
	})
}

func (r *documentRepo) Update(_ context.Context, d *entity.ElectronicDocument) error {
	return r.a.write(func(st *state) error {
		k := documentKey(d.DocumentKind, d.DocumentID)
		if _, ok := st.documents[k]; !ok {
			return domain.ErrNotFound
		}
		st.documents[k] = *d
		return nil
	})
}

func (r *documentRepo) GetByDocument(_ context.Context, kind entity.DocumentKind, id string) (out *entity.ElectronicDocument, err error) {
	err = r.a.read(func(st *state) error {
		if d, ok := st.documents[documentKey(kind, id)]; ok {
			out = &d
		}
		return nil
	})
	return out, err
}

// ── receivables ─────────────────────────────────────────────────────────────

type receivableRepo struct{ a access }

func (r *receivableRepo) Create(_ context.Context, ar *entity.AccountsReceivable) error {
	return r.a.write(func(st *state) error {
		for _, x := range st.receivables {
			if x.InvoiceID == ar.InvoiceID {
				return domain.ErrDuplicate
			}
		}
		st.receivables[ar.ID] = *ar
		return nil
	})
}

func (r *receivableRepo) Update(_ context.Context, ar *entity.AccountsReceivable) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.receivables[ar.ID]; !ok {
			return domain.ErrNotFound
		}
		st.receivables[ar.ID] = *ar
		return nil
	})
}

func (r *receivableRepo) GetByID(_ context.Context, id string) (out *entity.AccountsReceivable, err error) {
	err = r.a.read(func(st *state) error {
		if ar, ok := st.receivables[id]; ok {
			out = &ar
		}
		return nil
	})
	return out, err
}

func (r *receivableRepo) GetByInvoiceID(_ context.Context, invoiceID string) (out *entity.AccountsReceivable, err error) {
	err = r.a.read(func(st *state) error {
		for _, ar := range st.receivables {
			if ar.InvoiceID == invoiceID {
				ar := ar
				out = &ar
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *receivableRepo) CreatePayment(_ context.Context, p *entity.Payment) error {
	return r.a.write(func(st *state) error {
		st.payments = append(st.payments, *p)
		return nil
	})
}

func (r *receivableRepo) ListPayments(_ context.Context, invoiceID string) (out []*entity.Payment, err error) {
	err = r.a.read(func(st *state) error {
		for _, p := range st.payments {
			if p.InvoiceID == invoiceID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	return out, err
}
