package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CreateInvoiceUseCase arma la factura: cliente, secuencial, líneas, stock, clave de acceso y firma
// en una sola transacción, bajo la compuerta de creación del punto de emisión.
type CreateInvoiceUseCase struct {
	txRunner   BillingTxRunner
	repos      repository.Repositories
	gate       CreationGate
	sequences  *SequenceAllocator
	customers  *CustomerResolver
	ledger     *inventory.StockLedger
	payloads   *PayloadSigner
	dispatcher Dispatcher
	loader     bundleLoader
	log        zerolog.Logger
	now        func() time.Time
}

// NewCreateInvoiceUseCase construye el caso de uso.
func NewCreateInvoiceUseCase(
	txRunner BillingTxRunner,
	repos repository.Repositories,
	gate CreationGate,
	ledger *inventory.StockLedger,
	payloads *PayloadSigner,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		txRunner:   txRunner,
		repos:      repos,
		gate:       gate,
		sequences:  NewSequenceAllocator(),
		customers:  NewCustomerResolver(),
		ledger:     ledger,
		payloads:   payloads,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

func invoiceGateKey(establishment, emissionPoint string) string {
	return sri.DocumentTypeInvoice + ":" + establishment + "-" + emissionPoint
}

// CreateInvoice crea la factura. Si no es borrador descuenta stock, firma y lanza el envío al SRI
// en segundo plano tras el commit.
func (uc *CreateInvoiceUseCase) CreateInvoice(ctx context.Context, companyID, userID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	terms := in.PaymentTerms
	if terms == "" {
		terms = entity.PaymentTermsCash
	}
	if terms == entity.PaymentTermsCredit && in.CreditDays <= 0 {
		return nil, fmt.Errorf("%w: crédito requiere días de plazo", domain.ErrInvalidInput)
	}
	if terms == entity.PaymentTermsCash && (in.CreditDays != 0 || !in.UpfrontAmount.IsZero()) {
		return nil, fmt.Errorf("%w: contado no admite plazo ni abono inicial", domain.ErrInvalidInput)
	}
	if in.UpfrontAmount.IsNegative() {
		return nil, fmt.Errorf("%w: abono inicial negativo", domain.ErrInvalidInput)
	}
	for _, item := range in.Items {
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: cantidad debe ser mayor a cero", domain.ErrInvalidInput)
		}
	}
	method := in.PaymentMethod
	if method == "" {
		method = sri.PaymentMethodCash
	}
	if !sri.ValidPaymentMethods[method] {
		return nil, fmt.Errorf("%w: forma de pago %s", domain.ErrInvalidInput, method)
	}

	company, err := uc.repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	release, err := uc.gate.Acquire(ctx, invoiceGateKey(company.Establishment, company.EmissionPoint))
	if err != nil {
		return nil, fmt.Errorf("compuerta de creación: %w", err)
	}
	defer release()

	var b *DocumentBundle
	err = uc.txRunner.RunBilling(ctx, func(repos repository.Repositories) error {
		customer, err := uc.customers.Resolve(ctx, repos, companyID, in.CustomerID, in.Customer)
		if err != nil {
			return err
		}
		seq, err := uc.sequences.Next(ctx, repos, company.Establishment, company.EmissionPoint, entity.DocumentKindInvoice)
		if err != nil {
			return err
		}

		now := uc.now()
		inv := &entity.Invoice{
			ID:            uuid.New().String(),
			CompanyID:     companyID,
			CustomerID:    customer.ID,
			Establishment: company.Establishment,
			EmissionPoint: company.EmissionPoint,
			Sequential:    seq,
			IssueDate:     now,
			PaymentTerms:  terms,
			PaymentMethod: method,
			CreditDays:    in.CreditDays,
			UpfrontAmount: in.UpfrontAmount,
			Status:        entity.DocumentStatusPending,
			CreatedBy:     userID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if in.Draft {
			inv.Status = entity.DocumentStatusDraft
		}

		products := make(map[string]*entity.Product, len(in.Items))
		details := make([]*entity.InvoiceDetail, 0, len(in.Items))
		for i, item := range in.Items {
			product, err := repos.Products.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("%w: producto %s", domain.ErrNotFound, item.ProductID)
			}
			if product.CompanyID != companyID {
				return domain.ErrForbidden
			}
			products[product.ID] = product
			subtotal := item.Quantity.Mul(product.Price).Round(2)
			tax := subtotal.Mul(product.TaxRate).Div(hundred).Round(2)
			details = append(details, &entity.InvoiceDetail{
				ID:               uuid.New().String(),
				InvoiceID:        inv.ID,
				LineNumber:       i + 1,
				ProductID:        product.ID,
				ProductCode:      product.Code,
				Description:      product.Name,
				Quantity:         item.Quantity,
				UnitPrice:        product.Price,
				TaxRate:          product.TaxRate,
				Subtotal:         subtotal,
				TaxAmount:        tax,
				ReturnedQuantity: decimal.Zero,
			})
			inv.Subtotal = inv.Subtotal.Add(subtotal)
			inv.TaxTotal = inv.TaxTotal.Add(tax)
		}
		inv.Total = inv.Subtotal.Add(inv.TaxTotal)
		if inv.UpfrontAmount.GreaterThan(inv.Total) {
			return fmt.Errorf("%w: el abono inicial supera el total", domain.ErrInvalidInput)
		}

		if err := repos.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, d := range details {
			if err := repos.Invoices.CreateDetail(ctx, d); err != nil {
				return err
			}
		}

		if !in.Draft {
			for _, d := range details {
				if _, err := uc.ledger.Deplete(ctx, repos, products[d.ProductID], d.Quantity, d); err != nil {
					return err
				}
			}
		}

		record, err := uc.payloads.NewRecord(ctx, repos, entity.DocumentKindInvoice, inv.ID, company,
			inv.IssueDate, inv.Establishment, inv.EmissionPoint, inv.Sequential)
		if err != nil {
			return err
		}
		b = &DocumentBundle{
			Kind:           entity.DocumentKindInvoice,
			Company:        company,
			Customer:       customer,
			Invoice:        inv,
			InvoiceDetails: details,
			Record:         record,
			Products:       products,
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
		Str("invoice_id", b.Invoice.ID).
		Str("number", b.Invoice.Number()).
		Str("status", b.Invoice.Status).
		Msg("[SRI] factura creada")
	if !in.Draft {
		uc.dispatcher.ProcessAsync(entity.DocumentKindInvoice, b.Invoice.ID)
	}
	return toInvoiceResponse(b), nil
}

// GetInvoice obtiene una factura por ID con su detalle completo.
func (uc *CreateInvoiceUseCase) GetInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	b, err := uc.loader.load(ctx, uc.repos, entity.DocumentKindInvoice, id, false)
	if err != nil {
		return nil, err
	}
	if b.Invoice.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return toInvoiceResponse(b), nil
}

func toInvoiceResponse(b *DocumentBundle) *dto.InvoiceResponse {
	inv := b.Invoice
	resp := &dto.InvoiceResponse{
		ID:            inv.ID,
		CompanyID:     inv.CompanyID,
		CustomerID:    inv.CustomerID,
		Number:        inv.Number(),
		Sequential:    inv.Sequential,
		IssueDate:     inv.IssueDate.Format("2006-01-02"),
		PaymentTerms:  inv.PaymentTerms,
		CreditDays:    inv.CreditDays,
		UpfrontAmount: inv.UpfrontAmount,
		Subtotal:      inv.Subtotal,
		TaxTotal:      inv.TaxTotal,
		Total:         inv.Total,
		Status:        inv.Status,
		Details:       make([]dto.InvoiceDetailResponse, 0, len(b.InvoiceDetails)),
	}
	if b.Customer != nil {
		resp.CustomerName = b.Customer.Name
	}
	if b.Record != nil {
		resp.AccessKey = b.Record.AccessKey
		resp.Authorization = b.Record.AuthorizationNumber
		if b.Record.AuthorizedAt != nil {
			resp.AuthorizedAt = b.Record.AuthorizedAt.Format(time.RFC3339)
		}
	}
	for _, d := range b.InvoiceDetails {
		resp.Details = append(resp.Details, dto.InvoiceDetailResponse{
			ID:               d.ID,
			LineNumber:       d.LineNumber,
			ProductID:        d.ProductID,
			Description:      d.Description,
			Quantity:         d.Quantity,
			UnitPrice:        d.UnitPrice,
			TaxRate:          d.TaxRate,
			Subtotal:         d.Subtotal,
			TaxAmount:        d.TaxAmount,
			ReturnedQuantity: d.ReturnedQuantity,
		})
	}
	return resp
}
