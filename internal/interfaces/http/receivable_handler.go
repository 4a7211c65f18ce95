package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
)

// ReceivableHandler cuentas por cobrar generadas al autorizarse una factura.
type ReceivableHandler struct {
	uc *billing.ReceivableUseCase
}

// NewReceivableHandler construye el handler.
func NewReceivableHandler(uc *billing.ReceivableUseCase) *ReceivableHandler {
	return &ReceivableHandler{uc: uc}
}

// GetByInvoice GET /api/receivables/invoice/:invoice_id
func (h *ReceivableHandler) GetByInvoice(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.GetByInvoice(c.Context(), companyID, c.Params("invoice_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RegisterPayment abona a la cuenta; al saldar queda pagada.
// POST /api/receivables/:id/payments
func (h *ReceivableHandler) RegisterPayment(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.RegisterPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.RegisterPayment(c.Context(), companyID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
