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
)

// ReceivableGenerator crea la cuenta por cobrar de una factura autorizada. Idempotente.
type ReceivableGenerator struct {
	now func() time.Time
}

// NewReceivableGenerator construye el generador.
func NewReceivableGenerator() *ReceivableGenerator {
	return &ReceivableGenerator{now: time.Now}
}

// Generate contado: cuenta saldada más pago automático por el total.
// Crédito: vence en fecha de emisión + días de crédito; el abono inicial se registra primero.
func (g *ReceivableGenerator) Generate(ctx context.Context, repos repository.Repositories, inv *entity.Invoice) (*entity.AccountsReceivable, error) {
	existing, err := repos.Receivables.GetByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := g.now()
	ar := &entity.AccountsReceivable{
		ID:          uuid.New().String(),
		CompanyID:   inv.CompanyID,
		InvoiceID:   inv.ID,
		CustomerID:  inv.CustomerID,
		Total:       inv.Total,
		Outstanding: inv.Total,
		DueDate:     inv.IssueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	method := inv.PaymentMethod
	if method == "" {
		method = sri.PaymentMethodCash
	}

	paid := inv.Total
	if inv.PaymentTerms == entity.PaymentTermsCredit {
		ar.DueDate = inv.IssueDate.AddDate(0, 0, inv.CreditDays)
		paid = inv.UpfrontAmount
	}
	if paid.IsPositive() {
		if err := repos.Receivables.CreatePayment(ctx, &entity.Payment{
			ID:           uuid.New().String(),
			InvoiceID:    inv.ID,
			ReceivableID: ar.ID,
			Amount:       paid,
			Method:       method,
			Automatic:    true,
			PaidAt:       now,
			CreatedAt:    now,
		}); err != nil {
			return nil, err
		}
		ar.Outstanding = ar.Outstanding.Sub(paid)
	}
	ar.Status = entity.ReceivableStatusPending
	if ar.IsPaid() {
		ar.Status = entity.ReceivableStatusPaid
	}
	if err := repos.Receivables.Create(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// ReceivableUseCase consulta de cartera y registro de abonos.
type ReceivableUseCase struct {
	txRunner BillingTxRunner
	repos    repository.Repositories
	now      func() time.Time
}

// NewReceivableUseCase construye el caso de uso.
func NewReceivableUseCase(txRunner BillingTxRunner, repos repository.Repositories) *ReceivableUseCase {
	return &ReceivableUseCase{txRunner: txRunner, repos: repos, now: time.Now}
}

// GetByInvoice cuenta por cobrar de una factura con sus pagos.
func (uc *ReceivableUseCase) GetByInvoice(ctx context.Context, companyID, invoiceID string) (*dto.ReceivableResponse, error) {
	ar, err := uc.repos.Receivables.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if ar == nil {
		return nil, domain.ErrNotFound
	}
	if ar.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	payments, err := uc.repos.Receivables.ListPayments(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return toReceivableResponse(ar, payments), nil
}

// RegisterPayment abona a una cuenta pendiente; el monto no puede superar el saldo.
func (uc *ReceivableUseCase) RegisterPayment(ctx context.Context, companyID, receivableID string, in dto.RegisterPaymentRequest) (*dto.ReceivableResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: monto debe ser mayor a cero", domain.ErrInvalidInput)
	}
	method := in.Method
	if method == "" {
		method = sri.PaymentMethodCash
	}
	var ar *entity.AccountsReceivable
	var payments []*entity.Payment
	err := uc.txRunner.RunBilling(ctx, func(repos repository.Repositories) error {
		var err error
		ar, err = repos.Receivables.GetByID(ctx, receivableID)
		if err != nil {
			return err
		}
		if ar == nil {
			return domain.ErrNotFound
		}
		if ar.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if in.Amount.GreaterThan(ar.Outstanding) {
			return fmt.Errorf("%w: el abono %s supera el saldo %s", domain.ErrInvalidInput, in.Amount.String(), ar.Outstanding.String())
		}
		now := uc.now()
		if err := repos.Receivables.CreatePayment(ctx, &entity.Payment{
			ID:           uuid.New().String(),
			InvoiceID:    ar.InvoiceID,
			ReceivableID: ar.ID,
			Amount:       in.Amount,
			Method:       method,
			PaidAt:       now,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		ar.Outstanding = ar.Outstanding.Sub(in.Amount)
		if ar.IsPaid() {
			ar.Status = entity.ReceivableStatusPaid
		}
		ar.UpdatedAt = now
		if err := repos.Receivables.Update(ctx, ar); err != nil {
			return err
		}
		payments, err = repos.Receivables.ListPayments(ctx, ar.InvoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toReceivableResponse(ar, payments), nil
}

func toReceivableResponse(ar *entity.AccountsReceivable, payments []*entity.Payment) *dto.ReceivableResponse {
	resp := &dto.ReceivableResponse{
		ID:          ar.ID,
		InvoiceID:   ar.InvoiceID,
		CustomerID:  ar.CustomerID,
		Total:       ar.Total,
		Outstanding: ar.Outstanding,
		DueDate:     ar.DueDate.Format("2006-01-02"),
		Status:      ar.Status,
		Payments:    make([]dto.PaymentResponse, 0, len(payments)),
	}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, dto.PaymentResponse{
			ID:        p.ID,
			Amount:    p.Amount,
			Method:    p.Method,
			Automatic: p.Automatic,
			PaidAt:    p.PaidAt.Format(time.RFC3339),
		})
	}
	return resp
}
