package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Las notas de crédito comparten una sola clave: la validación de devoluciones de una factura
// no depende del punto de emisión.
const creditNoteGateKey = sri.DocumentTypeCreditNote

// CreateCreditNoteUseCase arma notas de crédito contra facturas autorizadas.
type CreateCreditNoteUseCase struct {
	txRunner   BillingTxRunner
	repos      repository.Repositories
	gate       CreationGate
	sequences  *SequenceAllocator
	payloads   *PayloadSigner
	dispatcher Dispatcher
	loader     bundleLoader
	log        zerolog.Logger
	now        func() time.Time
}

// NewCreateCreditNoteUseCase construye el caso de uso.
func NewCreateCreditNoteUseCase(
	txRunner BillingTxRunner,
	repos repository.Repositories,
	gate CreationGate,
	payloads *PayloadSigner,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *CreateCreditNoteUseCase {
	return &CreateCreditNoteUseCase{
		txRunner:   txRunner,
		repos:      repos,
		gate:       gate,
		sequences:  NewSequenceAllocator(),
		payloads:   payloads,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// CreateCreditNote valida contra el estado confirmado de la factura (no contra lecturas previas del llamador),
// exige que esté autorizada y que cada devolución quepa en lo que aún puede devolverse.
func (uc *CreateCreditNoteUseCase) CreateCreditNote(ctx context.Context, companyID, userID string, in dto.CreateCreditNoteRequest) (*dto.CreditNoteResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(in.Items))
	for _, item := range in.Items {
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: cantidad debe ser mayor a cero", domain.ErrInvalidInput)
		}
		if seen[item.InvoiceDetailID] {
			return nil, fmt.Errorf("%w: línea %s repetida", domain.ErrInvalidInput, item.InvoiceDetailID)
		}
		seen[item.InvoiceDetailID] = true
	}

	company, err := uc.repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	release, err := uc.gate.Acquire(ctx, creditNoteGateKey)
	if err != nil {
		return nil, fmt.Errorf("compuerta de creación: %w", err)
	}
	defer release()

	var b *DocumentBundle
	err = uc.txRunner.RunBilling(ctx, func(repos repository.Repositories) error {
		inv, err := repos.Invoices.GetForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, in.InvoiceID)
		}
		if inv.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if inv.Status != entity.DocumentStatusAuthorized {
			return fmt.Errorf("%w: la factura %s está en estado %s, debe estar autorizada",
				domain.ErrInvalidState, inv.Number(), inv.Status)
		}

		now := uc.now()
		note := &entity.CreditNote{
			ID:            uuid.New().String(),
			CompanyID:     companyID,
			InvoiceID:     inv.ID,
			CustomerID:    inv.CustomerID,
			Establishment: company.Establishment,
			EmissionPoint: company.EmissionPoint,
			IssueDate:     now,
			Reason:        in.Reason,
			Status:        entity.DocumentStatusPending,
			CreatedBy:     userID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if in.Draft {
			note.Status = entity.DocumentStatusDraft
		}

		details := make([]*entity.CreditNoteDetail, 0, len(in.Items))
		for i, item := range in.Items {
			line, err := repos.Invoices.GetDetailByID(ctx, item.InvoiceDetailID)
			if err != nil {
				return err
			}
			if line == nil || line.InvoiceID != inv.ID {
				return fmt.Errorf("%w: la línea %s no pertenece a la factura", domain.ErrInvalidInput, item.InvoiceDetailID)
			}
			subtotal := item.Quantity.Mul(line.UnitPrice).Round(2)
			details = append(details, &entity.CreditNoteDetail{
				ID:              uuid.New().String(),
				CreditNoteID:    note.ID,
				InvoiceDetailID: line.ID,
				LineNumber:      i + 1,
				ProductID:       line.ProductID,
				ProductCode:     line.ProductCode,
				Description:     line.Description,
				Quantity:        item.Quantity,
				UnitPrice:       line.UnitPrice,
				TaxRate:         line.TaxRate,
				Subtotal:        subtotal,
				TaxAmount:       subtotal.Mul(line.TaxRate).Div(hundred).Round(2),
			})
		}
		if err := checkReturnable(ctx, repos, details, false); err != nil {
			return err
		}

		seq, err := uc.sequences.Next(ctx, repos, note.Establishment, note.EmissionPoint, entity.DocumentKindCreditNote)
		if err != nil {
			return err
		}
		note.Sequential = seq
		for _, d := range details {
			note.Subtotal = note.Subtotal.Add(d.Subtotal)
			note.TaxTotal = note.TaxTotal.Add(d.TaxAmount)
		}
		note.Total = note.Subtotal.Add(note.TaxTotal)

		if err := repos.CreditNotes.Create(ctx, note); err != nil {
			return err
		}
		for _, d := range details {
			if err := repos.CreditNotes.CreateDetail(ctx, d); err != nil {
				return err
			}
		}
		record, err := uc.payloads.NewRecord(ctx, repos, entity.DocumentKindCreditNote, note.ID, company,
			note.IssueDate, note.Establishment, note.EmissionPoint, note.Sequential)
		if err != nil {
			return err
		}
		customer, err := repos.Customers.GetByID(ctx, inv.CustomerID)
		if err != nil {
			return err
		}
		invoiceDetails, err := repos.Invoices.GetDetailsByInvoiceID(ctx, inv.ID)
		if err != nil {
			return err
		}
		b = &DocumentBundle{
			Kind:              entity.DocumentKindCreditNote,
			Company:           company,
			Customer:          customer,
			Invoice:           inv,
			InvoiceDetails:    invoiceDetails,
			CreditNote:        note,
			CreditNoteDetails: details,
			Record:            record,
		}
		if in.Draft {
			return nil
		}
		return uc.payloads.Sign(ctx, repos, b)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("credit_note_id", b.CreditNote.ID).
		Str("invoice_id", b.Invoice.ID).
		Str("number", b.CreditNote.Number()).
		Str("status", b.CreditNote.Status).
		Msg("[SRI] nota de crédito creada")
	if !in.Draft {
		uc.dispatcher.ProcessAsync(entity.DocumentKindCreditNote, b.CreditNote.ID)
	}
	return toCreditNoteResponse(b), nil
}

// GetCreditNote obtiene una nota de crédito con su detalle.
func (uc *CreateCreditNoteUseCase) GetCreditNote(ctx context.Context, companyID, id string) (*dto.CreditNoteResponse, error) {
	b, err := uc.loader.load(ctx, uc.repos, entity.DocumentKindCreditNote, id, false)
	if err != nil {
		return nil, err
	}
	if b.CreditNote.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return toCreditNoteResponse(b), nil
}

// checkReturnable verifica devuelto + reservado por notas abiertas + solicitado <= cantidad original.
// selfIncluded indica que las líneas ya cuentan dentro de las notas abiertas (nota en borrador).
func checkReturnable(ctx context.Context, repos repository.Repositories, lines []*entity.CreditNoteDetail, selfIncluded bool) error {
	for _, d := range lines {
		line, err := repos.Invoices.GetDetailByID(ctx, d.InvoiceDetailID)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("%w: línea %s", domain.ErrNotFound, d.InvoiceDetailID)
		}
		open, err := repos.CreditNotes.SumOpenReturns(ctx, line.ID)
		if err != nil {
			return err
		}
		if selfIncluded {
			open = open.Sub(d.Quantity)
		}
		remaining := decimal.Max(line.Returnable().Sub(open), decimal.Zero)
		if d.Quantity.GreaterThan(remaining) {
			return fmt.Errorf("%w: la línea %d (%s) admite devolver %s, se solicitó %s",
				domain.ErrInvalidInput, line.LineNumber, line.Description, remaining.String(), d.Quantity.String())
		}
	}
	return nil
}

func toCreditNoteResponse(b *DocumentBundle) *dto.CreditNoteResponse {
	n := b.CreditNote
	resp := &dto.CreditNoteResponse{
		ID:            n.ID,
		CompanyID:     n.CompanyID,
		InvoiceID:     n.InvoiceID,
		InvoiceNumber: b.Invoice.Number(),
		CustomerID:    n.CustomerID,
		Number:        n.Number(),
		Sequential:    n.Sequential,
		IssueDate:     n.IssueDate.Format("2006-01-02"),
		Reason:        n.Reason,
		Subtotal:      n.Subtotal,
		TaxTotal:      n.TaxTotal,
		Total:         n.Total,
		Status:        n.Status,
		Details:       make([]dto.CreditNoteDetailResponse, 0, len(b.CreditNoteDetails)),
	}
	if b.Record != nil {
		resp.AccessKey = b.Record.AccessKey
		resp.Authorization = b.Record.AuthorizationNumber
		if b.Record.AuthorizedAt != nil {
			resp.AuthorizedAt = b.Record.AuthorizedAt.Format(time.RFC3339)
		}
	}
	for _, d := range b.CreditNoteDetails {
		resp.Details = append(resp.Details, dto.CreditNoteDetailResponse{
			ID:              d.ID,
			InvoiceDetailID: d.InvoiceDetailID,
			ProductID:       d.ProductID,
			Description:     d.Description,
			Quantity:        d.Quantity,
			UnitPrice:       d.UnitPrice,
			Subtotal:        d.Subtotal,
			TaxAmount:       d.TaxAmount,
		})
	}
	return resp
}
