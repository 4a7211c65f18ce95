package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// documentActions rutas de ciclo de vida comunes a facturas y notas de crédito.
type documentActions struct {
	kind         entity.DocumentKind
	orchestrator *billing.AuthorizationOrchestrator
	pdf          *billing.PDFUseCase
}

// Issue emite un borrador: descuenta stock, firma y lo encola para el SRI.
// POST /api/{invoices|credit-notes}/:id/issue
func (a documentActions) Issue(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := a.orchestrator.Issue(c.Context(), companyID, a.kind, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

// Status consulta el estado; si está en curso pregunta al SRI en primer plano.
// GET /api/{invoices|credit-notes}/:id/status
func (a documentActions) Status(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := a.orchestrator.CheckStatus(c.Context(), companyID, a.kind, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel anula un borrador.
// POST /api/{invoices|credit-notes}/:id/cancel
func (a documentActions) Cancel(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := a.orchestrator.Cancel(c.Context(), companyID, a.kind, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reactivate devuelve un comprobante anulado a borrador.
// POST /api/{invoices|credit-notes}/:id/reactivate
func (a documentActions) Reactivate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := a.orchestrator.Reactivate(c.Context(), companyID, a.kind, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RIDE descarga la representación impresa en PDF.
// GET /api/{invoices|credit-notes}/:id/ride
func (a documentActions) RIDE(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	pdfBytes, filename, err := a.pdf.DownloadRIDE(c.Context(), companyID, a.kind, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(pdfBytes)
}
