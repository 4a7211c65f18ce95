package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// CreditNoteHandler notas de crédito sobre facturas autorizadas.
type CreditNoteHandler struct {
	uc *billing.CreateCreditNoteUseCase
	documentActions
}

// NewCreditNoteHandler construye el handler.
func NewCreditNoteHandler(uc *billing.CreateCreditNoteUseCase, orchestrator *billing.AuthorizationOrchestrator, pdf *billing.PDFUseCase) *CreditNoteHandler {
	return &CreditNoteHandler{
		uc:              uc,
		documentActions: documentActions{kind: entity.DocumentKindCreditNote, orchestrator: orchestrator, pdf: pdf},
	}
}

// Create POST /api/credit-notes
func (h *CreditNoteHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateCreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	note, err := h.uc.CreateCreditNote(c.Context(), companyID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// GetByID GET /api/credit-notes/:id
func (h *CreditNoteHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	note, err := h.uc.GetCreditNote(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(note)
}
