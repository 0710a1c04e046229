package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Bodega-api/internal/application/issuance"
	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/application/usecase"
	"github.com/jhoicas/Bodega-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC  *usecase.ProductUseCase
	Ledger     *stock.Ledger
	Reorder    *stock.ReorderReportUseCase
	IssuanceUC *issuance.UseCase
	JWTSecret  string
	Gatherer   prometheus.Gatherer // nil = sin /metrics
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleMagasinier, jwt.RoleResponsableAchats, jwt.RoleChefAtelier)
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleMagasinier)
	receiving := RequireRole(jwt.RoleAdmin, jwt.RoleMagasinier, jwt.RoleResponsableAchats)
	purchasing := RequireRole(jwt.RoleAdmin, jwt.RoleResponsableAchats)
	requesters := RequireRole(jwt.RoleAdmin, jwt.RoleMagasinier, jwt.RoleChefAtelier)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", purchasing, productHandler.Create)
	products.Get("/", anyRole, productHandler.List)
	products.Get("/:id", anyRole, productHandler.GetByID)
	products.Delete("/:id", purchasing, productHandler.Deactivate)

	// Stock ledger
	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Ledger, deps.Reorder)
	stockGroup.Post("/receipts", receiving, stockHandler.Receive)
	stockGroup.Post("/purchase-orders/:id/receive", receiving, stockHandler.ReceivePurchaseOrder)
	stockGroup.Post("/allocations", warehouse, stockHandler.Allocate)
	stockGroup.Post("/adjustments", warehouse, stockHandler.Adjust)
	stockGroup.Post("/lots/:id/close", warehouse, stockHandler.CloseLot)
	stockGroup.Get("/products/:id", anyRole, stockHandler.GetStock)
	stockGroup.Get("/products/:id/movements", anyRole, stockHandler.Movements)
	stockGroup.Get("/products/:id/lots", anyRole, stockHandler.Lots)
	stockGroup.Get("/products/:id/reconcile", RequireRole(jwt.RoleAdmin), stockHandler.Reconcile)
	stockGroup.Get("/reorder-report", receiving, stockHandler.ReorderReport)

	// Bons de sortie
	issuances := protected.Group("/issuances")
	issuanceHandler := NewIssuanceHandler(deps.IssuanceUC)
	issuances.Post("/", requesters, issuanceHandler.Create)
	issuances.Get("/:id", anyRole, issuanceHandler.Get)
	issuances.Get("/:id/pdf", anyRole, issuanceHandler.PDF)
	issuances.Post("/:id/confirm", warehouse, issuanceHandler.Confirm)
	issuances.Post("/:id/cancel", requesters, issuanceHandler.Cancel)
}
