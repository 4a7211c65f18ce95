package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/application/usecase"
	"github.com/jhoicas/facturacion-sri/internal/domain"
)

const dateLayout = "2006-01-02"

// ProductHandler catálogo de productos y sus existencias (lotes o contador único).
type ProductHandler struct {
	uc    *usecase.ProductUseCase
	stock *inventory.StockUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *usecase.ProductUseCase, stock *inventory.StockUseCase) *ProductHandler {
	return &ProductHandler{uc: uc, stock: stock}
}

// Create godoc
// @Summary      Crear producto
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.Context(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener producto con su disponible
// @Tags         products
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.GetByID(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ReceiveLot registra un lote de compra.
// POST /api/products/:id/lots
func (h *ProductHandler) ReceiveLot(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.ReceiveLotRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, err)
	}
	input := inventory.ReceiveLotInput{
		CompanyID: companyID,
		ProductID: c.Params("id"),
		LotNumber: in.LotNumber,
		Quantity:  in.Quantity,
	}
	if in.PurchaseDate != "" {
		d, err := time.Parse(dateLayout, in.PurchaseDate)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: purchase_date", domain.ErrInvalidInput))
		}
		input.PurchaseDate = d
	}
	if in.ExpiryDate != "" {
		d, err := time.Parse(dateLayout, in.ExpiryDate)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: expiry_date", domain.ErrInvalidInput))
		}
		input.ExpiryDate = &d
	}
	lot, err := h.stock.ReceiveLot(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.LotResponse{
		ID:           lot.ID,
		ProductID:    lot.ProductID,
		LotNumber:    lot.LotNumber,
		Purchased:    lot.Purchased,
		Available:    lot.Available,
		PurchaseDate: lot.PurchaseDate,
		ExpiryDate:   lot.ExpiryDate,
	})
}

// AdjustStock ajuste manual del contador único; delta negativo descuenta.
// POST /api/products/:id/stock
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	productID := c.Params("id")
	if err := h.stock.AdjustStock(c.Context(), companyID, productID, in.Delta); err != nil {
		return writeError(c, err)
	}
	available, err := h.stock.Available(c.Context(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{ProductID: productID, Available: available})
}
