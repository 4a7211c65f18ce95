package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/application/usecase"
	"github.com/jhoicas/facturacion-sri/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC     *usecase.CompanyUseCase
	CustomerUC    *usecase.CustomerUseCase
	ProductUC     *usecase.ProductUseCase
	StockUC       *inventory.StockUseCase
	CreateInvoice *billing.CreateInvoiceUseCase
	CreateNote    *billing.CreateCreditNoteUseCase
	Receivables   *billing.ReceivableUseCase
	Orchestrator  *billing.AuthorizationOrchestrator
	PDF           *billing.PDFUseCase
	JWTSecret     string
	Health        dto.HealthResponse
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(deps.Health)
	})

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor, jwt.RoleBodeguero)

	// Emisores (solo admin)
	companies := protected.Group("/companies", RequireRole(jwt.RoleAdmin))
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Post("/", companyHandler.Create)
	companies.Get("/:id", companyHandler.GetByID)

	customers := protected.Group("/customers", sales)
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", customerHandler.Create)
	customers.Get("/:id", customerHandler.GetByID)

	// Productos: lectura para todos los roles, existencias para bodega
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, deps.StockUC)
	products.Post("/", warehouse, productHandler.Create)
	products.Get("/:id", anyRole, productHandler.GetByID)
	products.Post("/:id/lots", warehouse, productHandler.ReceiveLot)
	products.Post("/:id/stock", warehouse, productHandler.AdjustStock)

	invoices := protected.Group("/invoices", sales)
	invoiceHandler := NewInvoiceHandler(deps.CreateInvoice, deps.Orchestrator, deps.PDF)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Post("/:id/issue", invoiceHandler.Issue)
	invoices.Get("/:id/status", invoiceHandler.Status)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)
	invoices.Post("/:id/reactivate", invoiceHandler.Reactivate)
	invoices.Get("/:id/ride", invoiceHandler.RIDE)

	notes := protected.Group("/credit-notes", sales)
	noteHandler := NewCreditNoteHandler(deps.CreateNote, deps.Orchestrator, deps.PDF)
	notes.Post("/", noteHandler.Create)
	notes.Get("/:id", noteHandler.GetByID)
	notes.Post("/:id/issue", noteHandler.Issue)
	notes.Get("/:id/status", noteHandler.Status)
	notes.Post("/:id/cancel", noteHandler.Cancel)
	notes.Post("/:id/reactivate", noteHandler.Reactivate)
	notes.Get("/:id/ride", noteHandler.RIDE)

	receivables := protected.Group("/receivables", sales)
	receivableHandler := NewReceivableHandler(deps.Receivables)
	receivables.Get("/invoice/:invoice_id", receivableHandler.GetByInvoice)
	receivables.Post("/:id/payments", receivableHandler.RegisterPayment)
}
